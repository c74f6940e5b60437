// Package state owns the live projection of the reminder collection and
// mediates every mutation, so presentation code never talks to storage
// directly. Failures surface as state, not faults: the projection always
// keeps the last-known-good data and carries a dismissible error message.
package state

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dkrasnov/reminders/internal/database"
	"github.com/dkrasnov/reminders/internal/models"
	"github.com/dkrasnov/reminders/internal/usecase"
	"go.uber.org/zap"
)

// Phase is the lifecycle phase of the projection
type Phase string

const (
	// PhaseLoading means no snapshot has arrived yet
	PhaseLoading Phase = "loading"
	// PhaseReady means the projection holds live data
	PhaseReady Phase = "ready"
)

// Snapshot is the full view-model state delivered to subscribers: the
// current collections, the active filter axes, and a transient error
// message ("" when none). Data slices are owned by the core; consumers
// must treat them as read-only.
type Snapshot struct {
	Phase          Phase                 `json:"phase"`
	Reminders      []models.Reminder     `json:"reminders"`
	Lists          []models.ReminderList `json:"lists"`
	Classification models.Classification `json:"classification"`
	ListID         *int64                `json:"list_id,omitempty"`
	Error          string                `json:"error,omitempty"`
}

// Core is the reminder state core. A single Core instance owns its
// snapshot exclusively; all mutation goes through its methods and all
// reads come from the latest adopted storage snapshot.
type Core struct {
	reminderRepo database.ReminderRepositoryInterface
	listRepo     database.ListRepositoryInterface
	reminders    *usecase.Reminders
	lists        *usecase.Lists
	logger       *zap.Logger
	now          func() time.Time

	mu   sync.Mutex
	snap Snapshot
	subs map[chan Snapshot]struct{}
}

// Option configures a Core
type Option func(*Core)

// WithClock overrides the evaluation clock, used by tests to pin "today"
func WithClock(now func() time.Time) Option {
	return func(c *Core) { c.now = now }
}

// New creates a state core. Call Start to begin consuming storage
// snapshots; until the first one arrives the core reports PhaseLoading.
func New(
	reminderRepo database.ReminderRepositoryInterface,
	listRepo database.ListRepositoryInterface,
	reminders *usecase.Reminders,
	lists *usecase.Lists,
	logger *zap.Logger,
	opts ...Option,
) *Core {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Core{
		reminderRepo: reminderRepo,
		listRepo:     listRepo,
		reminders:    reminders,
		lists:        lists,
		logger:       logger,
		now:          time.Now,
		snap: Snapshot{
			Phase:          PhaseLoading,
			Classification: models.ClassificationAll,
		},
		subs: make(map[chan Snapshot]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start subscribes to both storage streams and launches the consume loop.
// The loop runs until ctx is canceled; once torn down, pending snapshot
// deliveries to this instance are discarded.
func (c *Core) Start(ctx context.Context) error {
	reminderCh, err := c.reminderRepo.Watch(ctx)
	if err != nil {
		return err
	}
	listCh, err := c.listRepo.Watch(ctx)
	if err != nil {
		return err
	}

	go c.run(ctx, reminderCh, listCh)
	return nil
}

func (c *Core) run(ctx context.Context, reminderCh <-chan []models.Reminder, listCh <-chan []models.ReminderList) {
	c.logger.Debug("state_core_started")
	for {
		select {
		case <-ctx.Done():
			c.logger.Debug("state_core_stopped")
			return
		case snapshot, ok := <-reminderCh:
			if !ok {
				return
			}
			c.adoptReminders(snapshot)
		case snapshot, ok := <-listCh:
			if !ok {
				return
			}
			c.adoptLists(snapshot)
		}
	}
}

// adoptReminders replaces the reminder projection wholesale: the store is
// truth, the core is cache. A successful snapshot supersedes any pending
// error message.
func (c *Core) adoptReminders(snapshot []models.Reminder) {
	c.mu.Lock()
	c.snap.Reminders = snapshot
	c.snap.Phase = PhaseReady
	c.snap.Error = ""
	current := c.snap
	c.mu.Unlock()

	c.publish(current)
}

func (c *Core) adoptLists(snapshot []models.ReminderList) {
	c.mu.Lock()
	c.snap.Lists = snapshot
	current := c.snap
	c.mu.Unlock()

	c.publish(current)
}

// Subscribe returns a live stream of state snapshots, the current one
// first. Delivery is latest-wins: a slow consumer skips intermediate
// states. The channel closes when ctx is canceled.
func (c *Core) Subscribe(ctx context.Context) <-chan Snapshot {
	ch := make(chan Snapshot, 1)

	c.mu.Lock()
	c.subs[ch] = struct{}{}
	ch <- c.snap
	c.mu.Unlock()

	go func() {
		<-ctx.Done()
		c.mu.Lock()
		delete(c.subs, ch)
		c.mu.Unlock()
		close(ch)
	}()

	return ch
}

func (c *Core) publish(snapshot Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for ch := range c.subs {
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
}

// Current returns the latest state snapshot
func (c *Core) Current() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// SelectType sets the active classification. Pure state: no I/O happens,
// the same data re-projects under the new filter. Unknown values are
// ignored.
func (c *Core) SelectType(classification models.Classification) {
	if !classification.Valid() {
		return
	}

	c.mu.Lock()
	c.snap.Classification = classification
	current := c.snap
	c.mu.Unlock()

	c.publish(current)
}

// SelectList sets the active by-list filter; nil clears it. Composable
// with the active classification.
func (c *Core) SelectList(listID *int64) {
	c.mu.Lock()
	c.snap.ListID = listID
	current := c.snap
	c.mu.Unlock()

	c.publish(current)
}

// Filtered synchronously projects the latest snapshot through the active
// classification and list filter. Classification is computed at call time
// from the record fields, never cached.
func (c *Core) Filtered() []models.Reminder {
	c.mu.Lock()
	snapshot := c.snap
	c.mu.Unlock()

	return usecase.FilterSnapshot(snapshot.Reminders, snapshot.Classification, snapshot.ListID, c.now())
}

// View projects the latest snapshot through an arbitrary classification
// and list filter without touching the active selection.
func (c *Core) View(classification models.Classification, listID *int64) []models.Reminder {
	c.mu.Lock()
	reminders := c.snap.Reminders
	c.mu.Unlock()

	return usecase.FilterSnapshot(reminders, classification, listID, c.now())
}

// Add mediates reminder creation. Like every mutation entry point it
// returns the error for the calling adapter and also records it on the
// state, so reactive subscribers see the failure without the data
// changing. The view is optimistic only in that it waits for the next
// storage-driven snapshot rather than mutating locally.
func (c *Core) Add(ctx context.Context, reminder models.Reminder) (int64, error) {
	id, err := c.reminders.Add(ctx, reminder)
	c.noteError(err)
	return id, err
}

// Update mediates whole-record replacement
func (c *Core) Update(ctx context.Context, reminder models.Reminder) error {
	err := c.reminders.Update(ctx, reminder)
	c.noteError(err)
	return err
}

// Delete mediates reminder removal
func (c *Core) Delete(ctx context.Context, reminder models.Reminder) error {
	err := c.reminders.Delete(ctx, reminder)
	c.noteError(err)
	return err
}

// ToggleCompletion mediates the completion flip
func (c *Core) ToggleCompletion(ctx context.Context, reminder models.Reminder) error {
	err := c.reminders.ToggleCompletion(ctx, reminder)
	c.noteError(err)
	return err
}

// ToggleFavorite mediates the favorite flip
func (c *Core) ToggleFavorite(ctx context.Context, reminder models.Reminder) error {
	err := c.reminders.ToggleFavorite(ctx, reminder)
	c.noteError(err)
	return err
}

// SetFavorite mediates an explicit favorite assignment
func (c *Core) SetFavorite(ctx context.Context, reminder models.Reminder, favorite bool) error {
	err := c.reminders.SetFavorite(ctx, reminder, favorite)
	c.noteError(err)
	return err
}

// ClearCompleted mediates bulk deletion of completed reminders
func (c *Core) ClearCompleted(ctx context.Context) (int, error) {
	cleared, err := c.reminders.ClearCompleted(ctx)
	c.noteError(err)
	return cleared, err
}

// ClearError dismisses the current error message. It does not retry the
// failed operation.
func (c *Core) ClearError() {
	c.mu.Lock()
	c.snap.Error = ""
	current := c.snap
	c.mu.Unlock()

	c.publish(current)
}

// noteError records a user-facing message for a failed mutation. The data
// snapshot stays untouched: last-known-good is never blanked on error.
func (c *Core) noteError(err error) {
	if err == nil {
		return
	}

	msg := userMessage(err)
	c.logger.Warn("mutation_failed", zap.Error(err))

	c.mu.Lock()
	c.snap.Error = msg
	current := c.snap
	c.mu.Unlock()

	c.publish(current)
}

func userMessage(err error) string {
	var ve *usecase.ValidationError
	switch {
	case errors.As(err, &ve):
		return ve.Message
	case errors.Is(err, database.ErrNotFound):
		return "that reminder no longer exists"
	case errors.Is(err, database.ErrUnavailable):
		return "storage is unavailable, please try again"
	case errors.Is(err, database.ErrConflict):
		return "the change conflicted with another update"
	default:
		return "something went wrong, please try again"
	}
}
