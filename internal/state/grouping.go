package state

import (
	"github.com/dkrasnov/reminders/internal/models"
	"github.com/dkrasnov/reminders/internal/usecase"
)

// CompletedGroups buckets completed reminders by recency for display.
// Grouping keys off completed_at; rows completed before that column
// existed fall back to the due date, which is an approximation.
type CompletedGroups struct {
	Today    []models.Reminder `json:"today"`
	ThisWeek []models.Reminder `json:"this_week"`
	Earlier  []models.Reminder `json:"earlier"`
}

// CompletedGroups projects the latest snapshot's completed reminders into
// recency buckets relative to the evaluation clock.
func (c *Core) CompletedGroups() CompletedGroups {
	c.mu.Lock()
	reminders := c.snap.Reminders
	listID := c.snap.ListID
	c.mu.Unlock()

	now := c.now()
	completed := usecase.FilterSnapshot(reminders, models.ClassificationCompleted, listID, now)

	groups := CompletedGroups{
		Today:    []models.Reminder{},
		ThisWeek: []models.Reminder{},
		Earlier:  []models.Reminder{},
	}
	weekStart := now.AddDate(0, 0, -7)

	for _, r := range completed {
		ref := r.CompletedAt
		if ref == nil {
			ref = r.DueDate
		}
		switch {
		case ref == nil:
			groups.Earlier = append(groups.Earlier, r)
		case models.SameDay(*ref, now):
			groups.Today = append(groups.Today, r)
		case ref.After(weekStart):
			groups.ThisWeek = append(groups.ThisWeek, r)
		default:
			groups.Earlier = append(groups.Earlier, r)
		}
	}

	return groups
}
