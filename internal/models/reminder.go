package models

import (
	"sort"
	"strings"
	"time"
)

// Priority represents the urgency of a reminder
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority converts a stored priority string into a Priority.
// Unrecognized or empty values fall back to PriorityMedium so a malformed
// row never breaks the read path.
func ParsePriority(value string) Priority {
	switch Priority(strings.ToLower(strings.TrimSpace(value))) {
	case PriorityLow:
		return PriorityLow
	case PriorityMedium:
		return PriorityMedium
	case PriorityHigh:
		return PriorityHigh
	default:
		return PriorityMedium
	}
}

// Classification is a derived view over the reminder collection
type Classification string

const (
	ClassificationToday     Classification = "today"
	ClassificationScheduled Classification = "scheduled"
	ClassificationAll       Classification = "all"
	ClassificationFavorite  Classification = "favorite"
	ClassificationCompleted Classification = "completed"
)

// Valid reports whether c is a known classification.
func (c Classification) Valid() bool {
	switch c {
	case ClassificationToday, ClassificationScheduled, ClassificationAll,
		ClassificationFavorite, ClassificationCompleted:
		return true
	default:
		return false
	}
}

// Reminder represents a single user task record. The zero ID marks a record
// that has not been persisted yet; ids are assigned by storage and immutable
// afterwards.
type Reminder struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Notes       string     `json:"notes,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	IsCompleted bool       `json:"is_completed"`
	IsFavorite  bool       `json:"is_favorite"`
	Priority    Priority   `json:"priority"`
	Tags        []string   `json:"tags,omitempty"`
	ListID      *int64     `json:"list_id,omitempty"`
	ImageURI    string     `json:"image_uri,omitempty"`
	Location    string     `json:"location,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Matches reports whether the reminder satisfies the classification's
// predicate at the given evaluation time. Classification is always derived
// from the record's fields, never stored.
func (r Reminder) Matches(c Classification, now time.Time) bool {
	switch c {
	case ClassificationToday:
		return r.DueDate != nil && SameDay(*r.DueDate, now)
	case ClassificationScheduled:
		return r.DueDate != nil
	case ClassificationFavorite:
		return r.IsFavorite
	case ClassificationCompleted:
		return r.IsCompleted
	default: // ClassificationAll and anything unrecognized
		return true
	}
}

// InList reports whether the reminder belongs to the given list. A nil
// target matches every reminder; this is the composable by-list axis.
func (r Reminder) InList(listID *int64) bool {
	if listID == nil {
		return true
	}
	return r.ListID != nil && *r.ListID == *listID
}

// SameDay reports whether two instants fall on the same calendar day in
// the local time zone.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Local().Date()
	by, bm, bd := b.Local().Date()
	return ay == by && am == bm && ad == bd
}

// SortForClassification orders reminders in place for display: scheduled
// views by ascending due date, everything else newest first by id.
func SortForClassification(c Classification, reminders []Reminder) {
	if c == ClassificationScheduled {
		sort.SliceStable(reminders, func(i, j int) bool {
			di, dj := reminders[i].DueDate, reminders[j].DueDate
			if di == nil || dj == nil {
				return dj == nil && di != nil
			}
			return di.Before(*dj)
		})
		return
	}
	sort.SliceStable(reminders, func(i, j int) bool {
		return reminders[i].ID > reminders[j].ID
	})
}
