package usecase

import (
	"context"
	"errors"

	"github.com/dkrasnov/reminders/internal/database"
	"github.com/dkrasnov/reminders/internal/models"
	"github.com/dkrasnov/reminders/internal/validation"
	"go.uber.org/zap"
)

// Lists groups the reminder-list operations
type Lists struct {
	repo   database.ListRepositoryInterface
	logger *zap.Logger
}

// NewLists creates the list use-cases
func NewLists(repo database.ListRepositoryInterface, logger *zap.Logger) *Lists {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lists{repo: repo, logger: logger}
}

// Add inserts a new list and returns its assigned id. A missing color
// falls back to the default blue.
func (u *Lists) Add(ctx context.Context, list models.ReminderList) (int64, error) {
	list.Name = validation.SanitizeText(list.Name)
	if list.Name == "" {
		return 0, NewValidationError("name", "name must not be blank")
	}
	if list.Color == "" {
		list.Color = models.DefaultListColor
	}

	list.ID = 0
	id, err := u.repo.Create(ctx, &list)
	if err != nil {
		return 0, err
	}

	u.logger.Debug("list_added", zap.Int64("id", id))
	return id, nil
}

// Get retrieves a list by id
func (u *Lists) Get(ctx context.Context, id int64) (*models.ReminderList, error) {
	return u.repo.GetByID(ctx, id)
}

// GetAll retrieves every list
func (u *Lists) GetAll(ctx context.Context) ([]models.ReminderList, error) {
	return u.repo.GetAll(ctx)
}

// Update replaces an existing list record whole
func (u *Lists) Update(ctx context.Context, list models.ReminderList) error {
	if list.ID == 0 {
		return NewValidationError("id", "id must reference a persisted list")
	}
	list.Name = validation.SanitizeText(list.Name)
	if list.Name == "" {
		return NewValidationError("name", "name must not be blank")
	}
	if list.Color == "" {
		list.Color = models.DefaultListColor
	}
	return u.repo.Update(ctx, &list)
}

// Delete removes a list; its reminders become unfiled. Idempotent like
// reminder deletion.
func (u *Lists) Delete(ctx context.Context, list models.ReminderList) error {
	err := u.repo.Delete(ctx, list.ID)
	if errors.Is(err, database.ErrNotFound) {
		return nil
	}
	return err
}

// GetDefault looks up the list flagged as default. When none exists it
// returns (nil, nil): callers must treat "no default list" as a valid
// terminal state, never fabricate one.
func (u *Lists) GetDefault(ctx context.Context) (*models.ReminderList, error) {
	return u.repo.GetDefault(ctx)
}
