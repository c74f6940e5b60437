package models

import "time"

// DefaultListColor is the color assigned to lists created without one.
const DefaultListColor = "#007AFF"

// ReminderList represents a named, colored grouping container for reminders.
// At most one list carries the default flag; the repository enforces this
// at write time.
type ReminderList struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
