package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dkrasnov/reminders/internal/models"
	"go.uber.org/zap"
)

const reminderColumns = `id, title, notes, due_date, is_completed, is_favorite, priority, tags, list_id, image_uri, location, completed_at, created_at, updated_at`

// ReminderRepository handles reminder database operations and publishes a
// fresh full-collection snapshot to watchers after every mutation.
type ReminderRepository struct {
	db     *DB
	watch  *watcher[models.Reminder]
	logger *zap.Logger
}

// NewReminderRepository creates a new reminder repository
func NewReminderRepository(db *DB) *ReminderRepository {
	return &ReminderRepository{
		db:     db,
		watch:  newWatcher[models.Reminder](),
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger used for snapshot refresh failures
func (r *ReminderRepository) SetLogger(logger *zap.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// Watch returns a live sequence of full-collection snapshots. The current
// collection is delivered first; every subsequent storage mutation delivers
// a fresh complete snapshot. The channel closes when ctx is canceled.
func (r *ReminderRepository) Watch(ctx context.Context) (<-chan []models.Reminder, error) {
	current, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	ch := r.watch.subscribe(ctx)
	r.watch.publish(current)
	return ch, nil
}

// NotifyChanged re-reads the full collection and pushes it to all watchers.
// Called after every mutation; exposed so collaborators that mutate
// reminders out-of-band (list deletion unfiles reminders) can trigger a
// refresh too.
func (r *ReminderRepository) NotifyChanged() {
	// Deliberately not the caller's context: a canceled request must not
	// suppress the snapshot other subscribers are waiting for.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	current, err := r.GetAll(ctx)
	if err != nil {
		// Subscribers keep their last-known-good snapshot.
		r.logger.Warn("reminder_snapshot_refresh_failed", zap.Error(err))
		return
	}
	r.watch.publish(current)
}

// GetAll retrieves every reminder, newest first
func (r *ReminderRepository) GetAll(ctx context.Context) ([]models.Reminder, error) {
	query := fmt.Sprintf(`SELECT %s FROM reminders ORDER BY id DESC`, reminderColumns)
	return r.queryReminders(ctx, "get all reminders", query)
}

// GetByID retrieves a reminder by id
func (r *ReminderRepository) GetByID(ctx context.Context, id int64) (*models.Reminder, error) {
	query := fmt.Sprintf(`SELECT %s FROM reminders WHERE id = ?`, reminderColumns)

	reminder, err := scanReminder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError("get reminder", err)
	}
	return reminder, nil
}

// GetCompleted retrieves all completed reminders, newest first
func (r *ReminderRepository) GetCompleted(ctx context.Context) ([]models.Reminder, error) {
	query := fmt.Sprintf(`SELECT %s FROM reminders WHERE is_completed = 1 ORDER BY id DESC`, reminderColumns)
	return r.queryReminders(ctx, "get completed reminders", query)
}

// GetFavorites retrieves all favorite reminders, newest first
func (r *ReminderRepository) GetFavorites(ctx context.Context) ([]models.Reminder, error) {
	query := fmt.Sprintf(`SELECT %s FROM reminders WHERE is_favorite = 1 ORDER BY id DESC`, reminderColumns)
	return r.queryReminders(ctx, "get favorite reminders", query)
}

// GetScheduled retrieves all reminders with a due date, soonest first
func (r *ReminderRepository) GetScheduled(ctx context.Context) ([]models.Reminder, error) {
	query := fmt.Sprintf(`SELECT %s FROM reminders WHERE due_date IS NOT NULL ORDER BY due_date ASC`, reminderColumns)
	return r.queryReminders(ctx, "get scheduled reminders", query)
}

// GetDueBetween retrieves reminders whose due date falls in [from, to),
// soonest first
func (r *ReminderRepository) GetDueBetween(ctx context.Context, from, to time.Time) ([]models.Reminder, error) {
	query := fmt.Sprintf(`SELECT %s FROM reminders WHERE due_date >= ? AND due_date < ? ORDER BY due_date ASC`, reminderColumns)
	return r.queryReminders(ctx, "get reminders by day range", query, from.UnixMilli(), to.UnixMilli())
}

// Create inserts a new reminder and returns its assigned id
func (r *ReminderRepository) Create(ctx context.Context, reminder *models.Reminder) (int64, error) {
	tagsJSON, err := json.Marshal(tagsOrEmpty(reminder.Tags))
	if err != nil {
		return 0, fmt.Errorf("failed to marshal tags: %w", err)
	}

	now := time.Now()
	query := `
		INSERT INTO reminders (title, notes, due_date, is_completed, is_favorite, priority, tags, list_id, image_uri, location, completed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		reminder.Title,
		reminder.Notes,
		nullMillis(reminder.DueDate),
		reminder.IsCompleted,
		reminder.IsFavorite,
		string(reminder.Priority),
		string(tagsJSON),
		nullInt64(reminder.ListID),
		reminder.ImageURI,
		reminder.Location,
		nullMillis(reminder.CompletedAt),
		now.UnixMilli(),
		now.UnixMilli(),
	)
	if err != nil {
		return 0, mapError("create reminder", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, mapError("create reminder", err)
	}

	reminder.ID = id
	reminder.CreatedAt = now
	reminder.UpdatedAt = now

	r.NotifyChanged()
	return id, nil
}

// Update replaces an existing reminder record whole
func (r *ReminderRepository) Update(ctx context.Context, reminder *models.Reminder) error {
	tagsJSON, err := json.Marshal(tagsOrEmpty(reminder.Tags))
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	now := time.Now()
	query := `
		UPDATE reminders
		SET title = ?, notes = ?, due_date = ?, is_completed = ?, is_favorite = ?, priority = ?, tags = ?, list_id = ?, image_uri = ?, location = ?, completed_at = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		reminder.Title,
		reminder.Notes,
		nullMillis(reminder.DueDate),
		reminder.IsCompleted,
		reminder.IsFavorite,
		string(reminder.Priority),
		string(tagsJSON),
		nullInt64(reminder.ListID),
		reminder.ImageURI,
		reminder.Location,
		nullMillis(reminder.CompletedAt),
		now.UnixMilli(),
		reminder.ID,
	)
	if err != nil {
		return mapError("update reminder", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return mapError("update reminder", err)
	}
	if affected == 0 {
		return fmt.Errorf("update reminder: %w", ErrNotFound)
	}

	reminder.UpdatedAt = now
	r.NotifyChanged()
	return nil
}

// Delete removes a reminder by id. Returns ErrNotFound if no row matched;
// the use-case layer decides whether that is an error.
func (r *ReminderRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM reminders WHERE id = ?`, id)
	if err != nil {
		return mapError("delete reminder", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return mapError("delete reminder", err)
	}
	if affected == 0 {
		return fmt.Errorf("delete reminder: %w", ErrNotFound)
	}

	r.NotifyChanged()
	return nil
}

func (r *ReminderRepository) queryReminders(ctx context.Context, op, query string, args ...any) ([]models.Reminder, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()

	reminders := []models.Reminder{}
	for rows.Next() {
		reminder, err := scanReminder(rows)
		if err != nil {
			return nil, mapError(op, err)
		}
		reminders = append(reminders, *reminder)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(op, err)
	}

	return reminders, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReminder(row rowScanner) (*models.Reminder, error) {
	var (
		reminder    models.Reminder
		priority    string
		tagsJSON    string
		dueDate     sql.NullInt64
		listID      sql.NullInt64
		completedAt sql.NullInt64
		createdAt   int64
		updatedAt   int64
	)

	err := row.Scan(
		&reminder.ID,
		&reminder.Title,
		&reminder.Notes,
		&dueDate,
		&reminder.IsCompleted,
		&reminder.IsFavorite,
		&priority,
		&tagsJSON,
		&listID,
		&reminder.ImageURI,
		&reminder.Location,
		&completedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	// Total decode: an unrecognized stored value degrades to medium
	// instead of failing the read path.
	reminder.Priority = models.ParsePriority(priority)

	if err := json.Unmarshal([]byte(tagsJSON), &reminder.Tags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
	}

	reminder.DueDate = millisPtr(dueDate)
	reminder.CompletedAt = millisPtr(completedAt)
	if listID.Valid {
		id := listID.Int64
		reminder.ListID = &id
	}
	reminder.CreatedAt = time.UnixMilli(createdAt)
	reminder.UpdatedAt = time.UnixMilli(updatedAt)

	return &reminder, nil
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func millisPtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64)
	return &t
}
