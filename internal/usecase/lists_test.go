package usecase

import (
	"context"
	"testing"

	"github.com/dkrasnov/reminders/internal/models"
)

func TestLists_Add_Defaults(t *testing.T) {
	t.Parallel()

	repo := newFakeListRepo()
	u := NewLists(repo, nil)
	ctx := context.Background()

	id, err := u.Add(ctx, models.ReminderList{Name: "Groceries"})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	got, err := u.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Color != models.DefaultListColor {
		t.Errorf("Expected default color %q, got %q", models.DefaultListColor, got.Color)
	}
}

func TestLists_Add_ValidationGate(t *testing.T) {
	t.Parallel()

	u := NewLists(newFakeListRepo(), nil)

	_, err := u.Add(context.Background(), models.ReminderList{Name: "   "})
	if !IsValidation(err) {
		t.Errorf("Expected ValidationError for blank name, got %v", err)
	}
}

func TestLists_GetDefault_Absent(t *testing.T) {
	t.Parallel()

	u := NewLists(newFakeListRepo(), nil)

	got, err := u.GetDefault(context.Background())
	if err != nil {
		t.Fatalf("GetDefault() error = %v", err)
	}
	if got != nil {
		t.Errorf("Expected no default list on empty store, got %+v", got)
	}
}

func TestLists_GetDefault_Found(t *testing.T) {
	t.Parallel()

	repo := newFakeListRepo()
	u := NewLists(repo, nil)
	ctx := context.Background()

	if _, err := u.Add(ctx, models.ReminderList{Name: "Inbox", IsDefault: true}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	got, err := u.GetDefault(ctx)
	if err != nil {
		t.Fatalf("GetDefault() error = %v", err)
	}
	if got == nil || got.Name != "Inbox" {
		t.Errorf("Expected default list 'Inbox', got %+v", got)
	}
}

func TestLists_Delete_Idempotent(t *testing.T) {
	t.Parallel()

	repo := newFakeListRepo()
	u := NewLists(repo, nil)
	ctx := context.Background()

	id, err := u.Add(ctx, models.ReminderList{Name: "Transient"})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	list := models.ReminderList{ID: id}
	if err := u.Delete(ctx, list); err != nil {
		t.Fatalf("First Delete() error = %v", err)
	}
	if err := u.Delete(ctx, list); err != nil {
		t.Errorf("Second Delete() should be a no-op, got %v", err)
	}
}

func TestLists_Update_RequiresID(t *testing.T) {
	t.Parallel()

	u := NewLists(newFakeListRepo(), nil)

	err := u.Update(context.Background(), models.ReminderList{Name: "No id"})
	if !IsValidation(err) {
		t.Errorf("Expected ValidationError for zero id, got %v", err)
	}
}
