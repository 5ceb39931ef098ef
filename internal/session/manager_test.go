package session

import (
	"errors"
	"testing"
	"time"

	"github.com/dvloznov/household-budget/internal/domain"
	"github.com/dvloznov/household-budget/internal/reconcile"
)

func TestManager_Lifecycle(t *testing.T) {
	m := NewManager()

	s := m.Create()
	if s.ID == "" {
		t.Fatal("Create() returned a session without an ID")
	}
	got, err := m.Get(s.ID)
	if err != nil || got != s {
		t.Fatalf("Get() = %v, %v", got, err)
	}

	s.Queue = reconcile.NewQueue(reconcile.Result{})
	if !s.HasPendingImport() {
		t.Error("HasPendingImport() = false with a queue staged")
	}
	s.ClearImport()
	if s.HasPendingImport() {
		t.Error("ClearImport() left the queue in place")
	}

	if err := m.Delete(s.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := m.Get(s.ID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("Get() after Delete error = %v, want ErrSessionNotFound", err)
	}
	if err := m.Delete(s.ID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("second Delete() error = %v, want ErrSessionNotFound", err)
	}
}

func TestManager_ListAndPrune(t *testing.T) {
	m := NewManager()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	clock := base
	m.now = func() time.Time { return clock }

	old := m.Create()
	clock = base.Add(time.Hour)
	fresh := m.Create()

	list := m.List()
	if len(list) != 2 || list[0] != old || list[1] != fresh {
		t.Fatalf("List() order wrong: %v", list)
	}

	clock = base.Add(90 * time.Minute)
	if n := m.Prune(time.Hour); n != 1 {
		t.Errorf("Prune() = %d, want 1", n)
	}
	if _, err := m.Get(fresh.ID); err != nil {
		t.Errorf("fresh session pruned: %v", err)
	}
}
