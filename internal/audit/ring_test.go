package audit

import (
	"fmt"
	"testing"
)

func TestRingKeepsLastEntries(t *testing.T) {
	r := NewRing(3)

	for i := 0; i < 5; i++ {
		r.Add(Entry{Action: ActionRead, Account: fmt.Sprintf("user%d", i)})
	}

	got := r.Entries()
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	for i, want := range []string{"user2", "user3", "user4"} {
		if got[i].Account != want {
			t.Errorf("entry %d: got %q, want %q", i, got[i].Account, want)
		}
	}
}

func TestRingPartiallyFilled(t *testing.T) {
	r := NewRing(8)
	r.Add(Entry{Account: "user1"})
	r.Add(Entry{Account: "user2"})

	got := r.Entries()
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].Account != "user1" || got[1].Account != "user2" {
		t.Errorf("unexpected order: %+v", got)
	}
}

func TestRingLast(t *testing.T) {
	r := NewRing(4)
	for i := 0; i < 4; i++ {
		r.Add(Entry{Account: fmt.Sprintf("user%d", i)})
	}

	last := r.Last(2)
	if len(last) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(last))
	}
	if last[0].Account != "user2" || last[1].Account != "user3" {
		t.Errorf("unexpected tail: %+v", last)
	}

	if got := r.Last(100); len(got) != 4 {
		t.Errorf("Last beyond size should return everything, got %d", len(got))
	}
}

func TestLoggerRecent(t *testing.T) {
	l, _ := setupLogger(t)

	l.Log(Entry{Action: ActionCreate, Service: "app", Account: "user1", Outcome: "success"})
	l.Log(Entry{Action: ActionDelete, Service: "app", Account: "user1", Outcome: "success"})

	recent := l.Recent(10)
	if len(recent) != 2 {
		t.Fatalf("expected 2 recent entries, got %d", len(recent))
	}
	if recent[1].Action != ActionDelete {
		t.Errorf("unexpected last entry: %+v", recent[1])
	}

	var nilLogger *Logger
	if got := nilLogger.Recent(10); got != nil {
		t.Errorf("nil logger should have no recent entries, got %v", got)
	}
}
