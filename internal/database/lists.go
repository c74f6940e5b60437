package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dkrasnov/reminders/internal/models"
	"go.uber.org/zap"
)

const listColumns = `id, name, color, is_default, created_at, updated_at`

// ListRepository handles reminder list database operations. Like the
// reminder repository it publishes full-collection snapshots after every
// mutation. Deleting a list reassigns its reminders to unfiled rather than
// cascading.
type ListRepository struct {
	db     *DB
	watch  *watcher[models.ReminderList]
	logger *zap.Logger

	// remindersChanged is invoked after a mutation that also touches
	// reminder rows, so reminder watchers see the refresh too.
	remindersChanged func()
}

// NewListRepository creates a new list repository
func NewListRepository(db *DB) *ListRepository {
	return &ListRepository{
		db:     db,
		watch:  newWatcher[models.ReminderList](),
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger used for snapshot refresh failures
func (r *ListRepository) SetLogger(logger *zap.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// SetReminderChangeHandler registers a callback fired when a list mutation
// modifies reminder rows as a side effect.
func (r *ListRepository) SetReminderChangeHandler(fn func()) {
	r.remindersChanged = fn
}

// Watch returns a live sequence of full-collection list snapshots, current
// collection first. The channel closes when ctx is canceled.
func (r *ListRepository) Watch(ctx context.Context) (<-chan []models.ReminderList, error) {
	current, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	ch := r.watch.subscribe(ctx)
	r.watch.publish(current)
	return ch, nil
}

// NotifyChanged re-reads the full collection and pushes it to all watchers
func (r *ListRepository) NotifyChanged() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	current, err := r.GetAll(ctx)
	if err != nil {
		r.logger.Warn("list_snapshot_refresh_failed", zap.Error(err))
		return
	}
	r.watch.publish(current)
}

// GetAll retrieves every list, oldest first
func (r *ListRepository) GetAll(ctx context.Context) ([]models.ReminderList, error) {
	query := fmt.Sprintf(`SELECT %s FROM reminder_lists ORDER BY id ASC`, listColumns)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, mapError("get all lists", err)
	}
	defer rows.Close()

	lists := []models.ReminderList{}
	for rows.Next() {
		list, err := scanList(rows)
		if err != nil {
			return nil, mapError("get all lists", err)
		}
		lists = append(lists, *list)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("get all lists", err)
	}

	return lists, nil
}

// GetByID retrieves a list by id
func (r *ListRepository) GetByID(ctx context.Context, id int64) (*models.ReminderList, error) {
	query := fmt.Sprintf(`SELECT %s FROM reminder_lists WHERE id = ?`, listColumns)

	list, err := scanList(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError("get list", err)
	}
	return list, nil
}

// GetDefault retrieves the list flagged as default, lowest id first for
// determinism on legacy data. Returns (nil, nil) when no default exists:
// absence is a valid state, not an error.
func (r *ListRepository) GetDefault(ctx context.Context) (*models.ReminderList, error) {
	query := fmt.Sprintf(`SELECT %s FROM reminder_lists WHERE is_default = 1 ORDER BY id ASC LIMIT 1`, listColumns)

	list, err := scanList(r.db.QueryRowContext(ctx, query))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, mapError("get default list", err)
	}
	return list, nil
}

// Create inserts a new list and returns its assigned id. Setting the
// default flag clears it on every other list first.
func (r *ListRepository) Create(ctx context.Context, list *models.ReminderList) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, mapError("create list", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if list.IsDefault {
		if _, err := tx.ExecContext(ctx, `UPDATE reminder_lists SET is_default = 0 WHERE is_default = 1`); err != nil {
			return 0, mapError("create list", err)
		}
	}

	now := time.Now()
	result, err := tx.ExecContext(ctx,
		`INSERT INTO reminder_lists (name, color, is_default, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		list.Name, list.Color, list.IsDefault, now.UnixMilli(), now.UnixMilli(),
	)
	if err != nil {
		return 0, mapError("create list", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, mapError("create list", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, mapError("create list", err)
	}

	list.ID = id
	list.CreatedAt = now
	list.UpdatedAt = now

	r.NotifyChanged()
	return id, nil
}

// Update replaces an existing list record whole, preserving the
// single-default invariant.
func (r *ListRepository) Update(ctx context.Context, list *models.ReminderList) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError("update list", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if list.IsDefault {
		if _, err := tx.ExecContext(ctx, `UPDATE reminder_lists SET is_default = 0 WHERE is_default = 1 AND id != ?`, list.ID); err != nil {
			return mapError("update list", err)
		}
	}

	now := time.Now()
	result, err := tx.ExecContext(ctx,
		`UPDATE reminder_lists SET name = ?, color = ?, is_default = ?, updated_at = ? WHERE id = ?`,
		list.Name, list.Color, list.IsDefault, now.UnixMilli(), list.ID,
	)
	if err != nil {
		return mapError("update list", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return mapError("update list", err)
	}
	if affected == 0 {
		return fmt.Errorf("update list: %w", ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return mapError("update list", err)
	}

	list.UpdatedAt = now
	r.NotifyChanged()
	return nil
}

// Delete removes a list and reassigns its reminders to unfiled in the same
// transaction, so no reminder is lost with its container.
func (r *ListRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError("delete list", err)
	}
	defer tx.Rollback() //nolint:errcheck

	unfiled, err := tx.ExecContext(ctx, `UPDATE reminders SET list_id = NULL WHERE list_id = ?`, id)
	if err != nil {
		return mapError("delete list", err)
	}
	unfiledCount, err := unfiled.RowsAffected()
	if err != nil {
		return mapError("delete list", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM reminder_lists WHERE id = ?`, id)
	if err != nil {
		return mapError("delete list", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return mapError("delete list", err)
	}
	if affected == 0 {
		return fmt.Errorf("delete list: %w", ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return mapError("delete list", err)
	}

	r.NotifyChanged()
	if unfiledCount > 0 && r.remindersChanged != nil {
		r.remindersChanged()
	}
	return nil
}

func scanList(row rowScanner) (*models.ReminderList, error) {
	var (
		list      models.ReminderList
		createdAt int64
		updatedAt int64
	)

	err := row.Scan(&list.ID, &list.Name, &list.Color, &list.IsDefault, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	list.CreatedAt = time.UnixMilli(createdAt)
	list.UpdatedAt = time.UnixMilli(updatedAt)
	return &list, nil
}
