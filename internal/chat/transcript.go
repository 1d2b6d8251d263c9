// Package chat holds the bill-capture conversation: a per-session
// transcript of user messages and assistant bill proposals, and the service
// that talks to the proposer.
package chat

import (
	"errors"
	"strings"
	"sync"
	"time"

	"splitbill/internal/core"
)

// LoadingText is shown in place of a proposal until the assistant answers.
const LoadingText = "Loading..."

var (
	ErrEmptyMessage = errors.New("message needs text or an image")
	ErrUnknownEntry = errors.New("no such chat entry")
	ErrNotResolved  = errors.New("chat entry has no bill to confirm")
	ErrConfirming   = errors.New("chat entry is already being confirmed")
)

type State int

const (
	StateUser State = iota
	StatePending
	StateResolved
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateResolved:
		return "resolved"
	default:
		return "user"
	}
}

// Entry is one transcript line. A pending entry that failed keeps showing
// the loading text; Err records why.
type Entry struct {
	State   State
	Message core.ChatMessage
	Err     error

	confirming bool
}

func (e Entry) ID() int64 { return e.Message.ID }

func (e Entry) Pending() bool  { return e.State == StatePending }
func (e Entry) Resolved() bool { return e.State == StateResolved }
func (e Entry) FromUser() bool { return e.State == StateUser }

// Transcript is an ordered, mutex-guarded list of entries. IDs come from
// the clock in milliseconds and never repeat, even across Clear.
type Transcript struct {
	mu      sync.Mutex
	entries []Entry
	lastID  int64
	now     func() time.Time
}

func NewTranscript(now func() time.Time) *Transcript {
	if now == nil {
		now = time.Now
	}
	return &Transcript{now: now}
}

func (t *Transcript) nextID() int64 {
	id := t.now().UnixMilli()
	if id <= t.lastID {
		id = t.lastID + 1
	}
	t.lastID = id
	return id
}

// Send appends the user's message followed by a pending assistant entry and
// returns both. Text is trimmed; at least one of text and image is needed.
func (t *Transcript) Send(text, imageURL string) (user, pending Entry, err error) {
	text = strings.TrimSpace(text)
	if text == "" && imageURL == "" {
		return Entry{}, Entry{}, ErrEmptyMessage
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	user = Entry{State: StateUser, Message: core.ChatMessage{
		ID:       t.nextID(),
		Type:     core.MessageImageText,
		Sender:   core.SenderUser,
		ImageURL: imageURL,
		Message:  text,
	}}
	pending = Entry{State: StatePending, Message: core.ChatMessage{
		ID:      t.nextID(),
		Type:    core.MessageImageText,
		Sender:  core.SenderGPT,
		Message: LoadingText,
	}}
	t.entries = append(t.entries, user, pending)
	return user, pending, nil
}

func (t *Transcript) indexOf(id int64) int {
	for i, e := range t.entries {
		if e.Message.ID == id {
			return i
		}
	}
	return -1
}

// Resolve replaces the pending entry id with a bill proposal. It reports
// false when id is not a pending entry, for example after Clear.
func (t *Transcript) Resolve(id int64, tx core.Transaction) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.indexOf(id)
	if i < 0 || t.entries[i].State != StatePending {
		return false
	}
	t.entries[i] = Entry{State: StateResolved, Message: core.ChatMessage{
		ID:          id,
		Type:        core.MessageBill,
		Sender:      core.SenderGPT,
		Transaction: &tx,
	}}
	return true
}

// Fail records err on the pending entry id. The entry stays pending.
func (t *Transcript) Fail(id int64, err error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.indexOf(id)
	if i < 0 || t.entries[i].State != StatePending {
		return false
	}
	t.entries[i].Err = err
	return true
}

// Bill returns the proposal held by the resolved entry id.
func (t *Transcript) Bill(id int64) (core.Transaction, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.indexOf(id)
	if i < 0 {
		return core.Transaction{}, ErrUnknownEntry
	}
	e := t.entries[i]
	if e.State != StateResolved || e.Message.Transaction == nil {
		return core.Transaction{}, ErrNotResolved
	}
	return *e.Message.Transaction, nil
}

// Claim returns the proposal held by the resolved entry id and marks it as
// being confirmed, so a second claim fails with ErrConfirming until Release.
func (t *Transcript) Claim(id int64) (core.Transaction, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.indexOf(id)
	if i < 0 {
		return core.Transaction{}, ErrUnknownEntry
	}
	e := &t.entries[i]
	if e.State != StateResolved || e.Message.Transaction == nil {
		return core.Transaction{}, ErrNotResolved
	}
	if e.confirming {
		return core.Transaction{}, ErrConfirming
	}
	e.confirming = true
	return *e.Message.Transaction, nil
}

// Release undoes Claim after a failed save.
func (t *Transcript) Release(id int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i := t.indexOf(id); i >= 0 {
		t.entries[i].confirming = false
	}
}

func (t *Transcript) Clear() {
	t.mu.Lock()
	t.entries = nil
	t.mu.Unlock()
}

// Entries returns a snapshot in display order.
func (t *Transcript) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Pending counts entries still waiting for the assistant.
func (t *Transcript) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, e := range t.entries {
		if e.State == StatePending {
			n++
		}
	}
	return n
}

// InFlight counts pending entries whose request has not failed.
func (t *Transcript) InFlight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, e := range t.entries {
		if e.State == StatePending && e.Err == nil {
			n++
		}
	}
	return n
}

func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
