package database

import (
	"context"
	"time"

	"github.com/dkrasnov/reminders/internal/models"
)

// ReminderRepositoryInterface defines the storage contract the use-case
// and state layers depend on. The interface enables mock implementations
// in tests; derived reads (completed/favorites/scheduled/day-range) are
// conveniences that must stay expressible as filters over GetAll.
type ReminderRepositoryInterface interface {
	Watch(ctx context.Context) (<-chan []models.Reminder, error)
	GetAll(ctx context.Context) ([]models.Reminder, error)
	GetByID(ctx context.Context, id int64) (*models.Reminder, error)
	GetCompleted(ctx context.Context) ([]models.Reminder, error)
	GetFavorites(ctx context.Context) ([]models.Reminder, error)
	GetScheduled(ctx context.Context) ([]models.Reminder, error)
	GetDueBetween(ctx context.Context, from, to time.Time) ([]models.Reminder, error)
	Create(ctx context.Context, reminder *models.Reminder) (int64, error)
	Update(ctx context.Context, reminder *models.Reminder) error
	Delete(ctx context.Context, id int64) error
}

// ListRepositoryInterface defines the storage contract for reminder lists
type ListRepositoryInterface interface {
	Watch(ctx context.Context) (<-chan []models.ReminderList, error)
	GetAll(ctx context.Context) ([]models.ReminderList, error)
	GetByID(ctx context.Context, id int64) (*models.ReminderList, error)
	GetDefault(ctx context.Context) (*models.ReminderList, error)
	Create(ctx context.Context, list *models.ReminderList) (int64, error)
	Update(ctx context.Context, list *models.ReminderList) error
	Delete(ctx context.Context, id int64) error
}

// Ensure concrete types implement the interfaces
var (
	_ ReminderRepositoryInterface = (*ReminderRepository)(nil)
	_ ListRepositoryInterface     = (*ListRepository)(nil)
)
