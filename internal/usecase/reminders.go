package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/dkrasnov/reminders/internal/database"
	"github.com/dkrasnov/reminders/internal/models"
	"github.com/dkrasnov/reminders/internal/validation"
	"go.uber.org/zap"
)

// Reminders groups the single-purpose reminder operations. Each operation
// is independently callable and holds no state beyond the repository, so
// operations are order-independent with respect to each other.
type Reminders struct {
	repo   database.ReminderRepositoryInterface
	logger *zap.Logger
}

// NewReminders creates the reminder use-cases
func NewReminders(repo database.ReminderRepositoryInterface, logger *zap.Logger) *Reminders {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reminders{repo: repo, logger: logger}
}

// Add inserts a new reminder and returns its assigned id. The title must
// be non-blank after sanitization; any caller-supplied id is ignored.
func (u *Reminders) Add(ctx context.Context, reminder models.Reminder) (int64, error) {
	reminder.Title = validation.SanitizeText(reminder.Title)
	if reminder.Title == "" {
		return 0, NewValidationError("title", "title must not be blank")
	}

	reminder.ID = 0
	reminder.Priority = models.ParsePriority(string(reminder.Priority))

	id, err := u.repo.Create(ctx, &reminder)
	if err != nil {
		return 0, err
	}

	u.logger.Debug("reminder_added", zap.Int64("id", id))
	return id, nil
}

// Get retrieves a reminder by id
func (u *Reminders) Get(ctx context.Context, id int64) (*models.Reminder, error) {
	return u.repo.GetByID(ctx, id)
}

// Update replaces an existing reminder record whole. The id must reference
// a persisted record.
func (u *Reminders) Update(ctx context.Context, reminder models.Reminder) error {
	if reminder.ID == 0 {
		return NewValidationError("id", "id must reference a persisted reminder")
	}
	reminder.Title = validation.SanitizeText(reminder.Title)
	if reminder.Title == "" {
		return NewValidationError("title", "title must not be blank")
	}
	reminder.Priority = models.ParsePriority(string(reminder.Priority))

	return u.repo.Update(ctx, &reminder)
}

// Delete removes a reminder. Deleting an already-deleted id is a no-op,
// not an error.
func (u *Reminders) Delete(ctx context.Context, reminder models.Reminder) error {
	err := u.repo.Delete(ctx, reminder.ID)
	if errors.Is(err, database.ErrNotFound) {
		return nil
	}
	return err
}

// ToggleCompletion flips is_completed on the caller-supplied snapshot and
// persists the whole record. This is deliberately not a fresh read: two
// concurrent toggles on the same reminder resolve as last-toggle-wins,
// with the loser's other fields overwritten from the stale snapshot.
func (u *Reminders) ToggleCompletion(ctx context.Context, reminder models.Reminder) error {
	reminder.IsCompleted = !reminder.IsCompleted
	if reminder.IsCompleted {
		now := time.Now()
		reminder.CompletedAt = &now
	} else {
		reminder.CompletedAt = nil
	}
	return u.repo.Update(ctx, &reminder)
}

// ToggleFavorite flips is_favorite on the caller-supplied snapshot and
// persists the whole record. Same last-toggle-wins semantics as
// ToggleCompletion.
func (u *Reminders) ToggleFavorite(ctx context.Context, reminder models.Reminder) error {
	reminder.IsFavorite = !reminder.IsFavorite
	return u.repo.Update(ctx, &reminder)
}

// SetFavorite sets is_favorite to an explicit value, skipping the write
// entirely when the value is unchanged.
func (u *Reminders) SetFavorite(ctx context.Context, reminder models.Reminder, favorite bool) error {
	if reminder.IsFavorite == favorite {
		return nil
	}
	reminder.IsFavorite = favorite
	return u.repo.Update(ctx, &reminder)
}

// ClearCompleted deletes every currently-completed reminder and returns
// how many were removed. The completed set is snapshotted once up front;
// reminders completed while the deletes run are not included.
func (u *Reminders) ClearCompleted(ctx context.Context) (int, error) {
	completed, err := u.repo.GetCompleted(ctx)
	if err != nil {
		return 0, err
	}

	cleared := 0
	for _, reminder := range completed {
		err := u.repo.Delete(ctx, reminder.ID)
		if errors.Is(err, database.ErrNotFound) {
			// Already gone; counts as cleared.
			continue
		}
		if err != nil {
			return cleared, err
		}
		cleared++
	}

	u.logger.Debug("completed_reminders_cleared", zap.Int("count", cleared))
	return cleared, nil
}

// ByType returns a live subscription filtered to the given classification.
// The filtering is applied in-process over full-collection snapshots, so
// the result never depends on storage-side filtering being authoritative.
func (u *Reminders) ByType(ctx context.Context, c models.Classification) (<-chan []models.Reminder, error) {
	if !c.Valid() {
		return nil, NewValidationError("type", "unknown classification")
	}

	source, err := u.repo.Watch(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan []models.Reminder, 1)
	go func() {
		defer close(out)
		for snapshot := range source {
			filtered := FilterSnapshot(snapshot, c, nil, time.Now())
			select {
			case out <- filtered:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// FilterSnapshot projects a full-collection snapshot through a
// classification and an optional by-list filter, ordered for display.
func FilterSnapshot(snapshot []models.Reminder, c models.Classification, listID *int64, now time.Time) []models.Reminder {
	filtered := make([]models.Reminder, 0, len(snapshot))
	for _, r := range snapshot {
		if r.Matches(c, now) && r.InList(listID) {
			filtered = append(filtered, r)
		}
	}
	models.SortForClassification(c, filtered)
	return filtered
}
