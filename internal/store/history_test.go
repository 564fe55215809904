package store

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSessionRepository_StartFinish(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	sess, err := repo.Start()
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if sess.ID == "" {
		t.Fatal("session should have an ID")
	}
	if !sess.Running() {
		t.Error("new session should be running")
	}

	got, err := repo.GetByID(sess.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if !got.Running() {
		t.Error("stored session should not have an end time yet")
	}

	stats := SessionStats{Frames: 300, FacelessFrames: 12, Clicks: 4}
	if err := repo.Finish(sess.ID, stats); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	got, err = repo.GetByID(sess.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Running() {
		t.Error("finished session should have an end time")
	}
	if got.Frames != 300 || got.FacelessFrames != 12 || got.Clicks != 4 {
		t.Errorf("unexpected counters %+v", got)
	}
}

func TestSession_JSONOmitsEndWhileRunning(t *testing.T) {
	running, err := json.Marshal(&Session{ID: "a", StartedAt: time.Unix(1000, 0).UTC()})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(running), "endedAt") {
		t.Errorf("running session JSON has endedAt: %s", running)
	}

	finished, err := json.Marshal(&Session{ID: "b", EndedAt: time.Unix(2000, 0).UTC()})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(finished), `"endedAt":"1970-01-01T00:33:20Z"`) {
		t.Errorf("finished session JSON = %s", finished)
	}
}

func TestSessionRepository_NotFound(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	if _, err := repo.GetByID("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
	if err := repo.Finish("missing", SessionStats{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Finish() error = %v, want ErrNotFound", err)
	}
}

func TestSessionRepository_List(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	var ids []string
	for i := 0; i < 3; i++ {
		sess, err := repo.Start()
		if err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		ids = append(ids, sess.ID)
		time.Sleep(2 * time.Millisecond)
	}

	all, err := repo.List(0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(all))
	}
	if all[0].ID != ids[2] {
		t.Errorf("newest session should come first, got %s", all[0].ID)
	}

	limited, err := repo.List(2)
	if err != nil {
		t.Fatalf("List(2) error = %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected 2 sessions, got %d", len(limited))
	}
}

func TestClickRepository_CreateAndList(t *testing.T) {
	s := newTestStore(t)

	sess, err := s.Sessions().Start()
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	base := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	clicks := []*Click{
		{SessionID: sess.ID, Side: SideLeft, LeftDistance: 1.9, RightDistance: 14.4, CreatedAt: base},
		{SessionID: sess.ID, Side: SideRight, LeftDistance: 14.1, RightDistance: 2.2, CreatedAt: base.Add(2 * time.Second)},
		{SessionID: sess.ID, Side: SideLeft, LeftDistance: 2.0, RightDistance: 13.8, CreatedAt: base.Add(4 * time.Second)},
	}

	repo := s.Clicks()
	for _, c := range clicks {
		if err := repo.Create(c); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if c.ID == "" {
			t.Error("Create() should assign an ID")
		}
	}

	t.Run("List returns newest first", func(t *testing.T) {
		got, err := repo.List(10)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("expected 3 clicks, got %d", len(got))
		}
		if got[0].ID != clicks[2].ID {
			t.Errorf("first click = %s, want %s", got[0].ID, clicks[2].ID)
		}
		if got[1].Side != SideRight || got[1].RightDistance != 2.2 {
			t.Errorf("unexpected second click %+v", got[1])
		}
	})

	t.Run("List honors limit", func(t *testing.T) {
		got, err := repo.List(1)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(got) != 1 {
			t.Errorf("expected 1 click, got %d", len(got))
		}
	})

	t.Run("ListBySession returns oldest first", func(t *testing.T) {
		got, err := repo.ListBySession(sess.ID)
		if err != nil {
			t.Fatalf("ListBySession() error = %v", err)
		}
		if len(got) != 3 || got[0].ID != clicks[0].ID {
			t.Errorf("unexpected order %v", got)
		}
	})

	t.Run("CountBySide", func(t *testing.T) {
		counts, err := repo.CountBySide(sess.ID)
		if err != nil {
			t.Fatalf("CountBySide() error = %v", err)
		}
		if counts[SideLeft] != 2 || counts[SideRight] != 1 {
			t.Errorf("unexpected counts %v", counts)
		}
	})
}

func TestClickRepository_CountBySide_Empty(t *testing.T) {
	s := newTestStore(t)

	counts, err := s.Clicks().CountBySide("nobody")
	if err != nil {
		t.Fatalf("CountBySide() error = %v", err)
	}
	if counts[SideLeft] != 0 || counts[SideRight] != 0 {
		t.Errorf("expected zero counts, got %v", counts)
	}
}

func TestClickRepository_Constraints(t *testing.T) {
	s := newTestStore(t)
	sess, err := s.Sessions().Start()
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	t.Run("rejects unknown side", func(t *testing.T) {
		err := s.Clicks().Create(&Click{SessionID: sess.ID, Side: "middle"})
		if err == nil {
			t.Error("expected check constraint error")
		}
	})

	t.Run("rejects unknown session", func(t *testing.T) {
		err := s.Clicks().Create(&Click{SessionID: "ghost", Side: SideLeft})
		if err == nil {
			t.Error("expected foreign key error")
		}
	})

	t.Run("cascades on session delete", func(t *testing.T) {
		if err := s.Clicks().Create(&Click{SessionID: sess.ID, Side: SideLeft}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if _, err := s.DB().Exec("DELETE FROM sessions WHERE id = ?", sess.ID); err != nil {
			t.Fatalf("delete session: %v", err)
		}

		got, err := s.Clicks().ListBySession(sess.ID)
		if err != nil {
			t.Fatalf("ListBySession() error = %v", err)
		}
		if len(got) != 0 {
			t.Errorf("expected clicks to be deleted, got %d", len(got))
		}
	})
}
