package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dkrasnov/reminders/internal/database"
	"github.com/dkrasnov/reminders/internal/models"
)

// fakeReminderRepo is an in-memory ReminderRepositoryInterface for tests.
// It counts writes so tests can assert that rejected operations never
// reached storage.
type fakeReminderRepo struct {
	mu      sync.Mutex
	items   map[int64]models.Reminder
	nextID  int64
	writes  int
	watch   chan []models.Reminder
	failAll error
}

func newFakeReminderRepo() *fakeReminderRepo {
	return &fakeReminderRepo{
		items: make(map[int64]models.Reminder),
		watch: make(chan []models.Reminder, 16),
	}
}

func (f *fakeReminderRepo) snapshotLocked() []models.Reminder {
	out := make([]models.Reminder, 0, len(f.items))
	for id := f.nextID; id >= 1; id-- {
		if r, ok := f.items[id]; ok {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeReminderRepo) publishLocked() {
	select {
	case f.watch <- f.snapshotLocked():
	default:
	}
}

func (f *fakeReminderRepo) Watch(ctx context.Context) (<-chan []models.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.publishLocked()
	return f.watch, nil
}

func (f *fakeReminderRepo) GetAll(ctx context.Context) ([]models.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	return f.snapshotLocked(), nil
}

func (f *fakeReminderRepo) GetByID(ctx context.Context, id int64) (*models.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.items[id]
	if !ok {
		return nil, fmt.Errorf("get reminder: %w", database.ErrNotFound)
	}
	return &r, nil
}

func (f *fakeReminderRepo) GetCompleted(ctx context.Context) ([]models.Reminder, error) {
	return f.filtered(func(r models.Reminder) bool { return r.IsCompleted })
}

func (f *fakeReminderRepo) GetFavorites(ctx context.Context) ([]models.Reminder, error) {
	return f.filtered(func(r models.Reminder) bool { return r.IsFavorite })
}

func (f *fakeReminderRepo) GetScheduled(ctx context.Context) ([]models.Reminder, error) {
	return f.filtered(func(r models.Reminder) bool { return r.DueDate != nil })
}

func (f *fakeReminderRepo) GetDueBetween(ctx context.Context, from, to time.Time) ([]models.Reminder, error) {
	return f.filtered(func(r models.Reminder) bool {
		return r.DueDate != nil && !r.DueDate.Before(from) && r.DueDate.Before(to)
	})
}

func (f *fakeReminderRepo) filtered(keep func(models.Reminder) bool) ([]models.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Reminder{}
	for _, r := range f.snapshotLocked() {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReminderRepo) Create(ctx context.Context, reminder *models.Reminder) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	f.nextID++
	reminder.ID = f.nextID
	f.items[reminder.ID] = *reminder
	f.publishLocked()
	return reminder.ID, nil
}

func (f *fakeReminderRepo) Update(ctx context.Context, reminder *models.Reminder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[reminder.ID]; !ok {
		return fmt.Errorf("update reminder: %w", database.ErrNotFound)
	}
	f.writes++
	f.items[reminder.ID] = *reminder
	f.publishLocked()
	return nil
}

func (f *fakeReminderRepo) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return fmt.Errorf("delete reminder: %w", database.ErrNotFound)
	}
	f.writes++
	delete(f.items, id)
	f.publishLocked()
	return nil
}

func (f *fakeReminderRepo) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

// fakeListRepo is an in-memory ListRepositoryInterface for tests
type fakeListRepo struct {
	mu     sync.Mutex
	items  map[int64]models.ReminderList
	nextID int64
	watch  chan []models.ReminderList
}

func newFakeListRepo() *fakeListRepo {
	return &fakeListRepo{
		items: make(map[int64]models.ReminderList),
		watch: make(chan []models.ReminderList, 16),
	}
}

func (f *fakeListRepo) snapshotLocked() []models.ReminderList {
	out := make([]models.ReminderList, 0, len(f.items))
	for id := int64(1); id <= f.nextID; id++ {
		if l, ok := f.items[id]; ok {
			out = append(out, l)
		}
	}
	return out
}

func (f *fakeListRepo) Watch(ctx context.Context) (<-chan []models.ReminderList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case f.watch <- f.snapshotLocked():
	default:
	}
	return f.watch, nil
}

func (f *fakeListRepo) GetAll(ctx context.Context) ([]models.ReminderList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked(), nil
}

func (f *fakeListRepo) GetByID(ctx context.Context, id int64) (*models.ReminderList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.items[id]
	if !ok {
		return nil, fmt.Errorf("get list: %w", database.ErrNotFound)
	}
	return &l, nil
}

func (f *fakeListRepo) GetDefault(ctx context.Context) (*models.ReminderList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id := int64(1); id <= f.nextID; id++ {
		if l, ok := f.items[id]; ok && l.IsDefault {
			return &l, nil
		}
	}
	return nil, nil
}

func (f *fakeListRepo) Create(ctx context.Context, list *models.ReminderList) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if list.IsDefault {
		for id, l := range f.items {
			l.IsDefault = false
			f.items[id] = l
		}
	}
	f.nextID++
	list.ID = f.nextID
	f.items[list.ID] = *list
	return list.ID, nil
}

func (f *fakeListRepo) Update(ctx context.Context, list *models.ReminderList) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[list.ID]; !ok {
		return fmt.Errorf("update list: %w", database.ErrNotFound)
	}
	if list.IsDefault {
		for id, l := range f.items {
			if id != list.ID {
				l.IsDefault = false
				f.items[id] = l
			}
		}
	}
	f.items[list.ID] = *list
	return nil
}

func (f *fakeListRepo) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return fmt.Errorf("delete list: %w", database.ErrNotFound)
	}
	delete(f.items, id)
	return nil
}

var (
	_ database.ReminderRepositoryInterface = (*fakeReminderRepo)(nil)
	_ database.ListRepositoryInterface     = (*fakeListRepo)(nil)
)
