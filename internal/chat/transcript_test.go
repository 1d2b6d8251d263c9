package chat

import (
	"errors"
	"testing"
	"time"

	"splitbill/internal/core"
)

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func TestTranscriptSend(t *testing.T) {
	tr := NewTranscript(fixedClock(1000))

	if _, _, err := tr.Send("   ", ""); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}

	user, pending, err := tr.Send("  lunch 12  ", "")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if user.Message.Message != "lunch 12" || user.Message.Sender != core.SenderUser {
		t.Fatalf("user entry %+v", user.Message)
	}
	if !pending.Pending() || pending.Message.Message != LoadingText || pending.Message.Sender != core.SenderGPT {
		t.Fatalf("pending entry %+v", pending)
	}
	if user.ID() != 1000 || pending.ID() != 1001 {
		t.Fatalf("ids %d, %d", user.ID(), pending.ID())
	}

	// Image only is allowed.
	if _, _, err := tr.Send("", "https://i.example/a.png"); err != nil {
		t.Fatalf("image only: %v", err)
	}
	if tr.Len() != 4 || tr.Pending() != 2 {
		t.Fatalf("len %d pending %d", tr.Len(), tr.Pending())
	}
}

func TestTranscriptIDsStayMonotonicAcrossClear(t *testing.T) {
	tr := NewTranscript(fixedClock(5))
	_, p1, _ := tr.Send("a", "")
	tr.Clear()
	u2, _, _ := tr.Send("b", "")
	if u2.ID() <= p1.ID() {
		t.Fatalf("id %d reused after clear (last %d)", u2.ID(), p1.ID())
	}
}

func TestTranscriptResolveMatchesByID(t *testing.T) {
	tr := NewTranscript(fixedClock(0))
	_, p1, _ := tr.Send("first", "")
	_, p2, _ := tr.Send("second", "")

	second := core.Transaction{Title: "second"}
	first := core.Transaction{Title: "first"}
	if !tr.Resolve(p2.ID(), second) || !tr.Resolve(p1.ID(), first) {
		t.Fatal("resolve failed")
	}
	for _, e := range tr.Entries() {
		if e.ID() == p1.ID() && e.Message.Transaction.Title != "first" {
			t.Fatalf("entry %d got %q", e.ID(), e.Message.Transaction.Title)
		}
		if e.ID() == p2.ID() && e.Message.Transaction.Title != "second" {
			t.Fatalf("entry %d got %q", e.ID(), e.Message.Transaction.Title)
		}
	}
	if tr.Resolve(p1.ID(), first) {
		t.Fatal("resolving twice should fail")
	}
	if tx, err := tr.Bill(p1.ID()); err != nil || tx.Title != "first" {
		t.Fatalf("Bill = %+v, %v", tx, err)
	}
}

func TestTranscriptResolveAfterClear(t *testing.T) {
	tr := NewTranscript(fixedClock(0))
	_, p, _ := tr.Send("x", "")
	tr.Clear()
	if tr.Resolve(p.ID(), core.Transaction{}) {
		t.Fatal("resolve after clear must report false")
	}
	if tr.Len() != 0 {
		t.Fatalf("stale resolve changed transcript: %d entries", tr.Len())
	}
}

func TestTranscriptFailKeepsPending(t *testing.T) {
	tr := NewTranscript(fixedClock(0))
	u, p, _ := tr.Send("x", "")
	boom := errors.New("boom")
	if !tr.Fail(p.ID(), boom) {
		t.Fatal("Fail should find the pending entry")
	}
	if tr.Fail(u.ID(), boom) {
		t.Fatal("Fail must ignore user entries")
	}
	e := tr.Entries()[1]
	if !e.Pending() || !errors.Is(e.Err, boom) || e.Message.Message != LoadingText {
		t.Fatalf("failed entry %+v", e)
	}
	if _, err := tr.Bill(p.ID()); !errors.Is(err, ErrNotResolved) {
		t.Fatalf("Bill on pending = %v", err)
	}
	if _, err := tr.Bill(42); !errors.Is(err, ErrUnknownEntry) {
		t.Fatalf("Bill on unknown = %v", err)
	}
}

func TestTranscriptClaimAndInFlight(t *testing.T) {
	tr := NewTranscript(fixedClock(0))
	_, p1, _ := tr.Send("a", "")
	_, p2, _ := tr.Send("b", "")
	if tr.InFlight() != 2 {
		t.Fatalf("InFlight = %d", tr.InFlight())
	}
	tr.Fail(p2.ID(), errors.New("boom"))
	if tr.InFlight() != 1 || tr.Pending() != 2 {
		t.Fatalf("InFlight %d Pending %d", tr.InFlight(), tr.Pending())
	}

	tr.Resolve(p1.ID(), core.Transaction{Title: "A"})
	if tx, err := tr.Claim(p1.ID()); err != nil || tx.Title != "A" {
		t.Fatalf("Claim = %+v, %v", tx, err)
	}
	if _, err := tr.Claim(p1.ID()); !errors.Is(err, ErrConfirming) {
		t.Fatalf("second Claim = %v", err)
	}
	tr.Release(p1.ID())
	if _, err := tr.Claim(p1.ID()); err != nil {
		t.Fatalf("Claim after Release = %v", err)
	}
	if _, err := tr.Claim(p2.ID()); !errors.Is(err, ErrNotResolved) {
		t.Fatalf("Claim on failed entry = %v", err)
	}
}
