package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"splitbill/internal/core"
	"splitbill/internal/data"
	"splitbill/internal/log"
)

// ConfirmRedirect is where the browser goes after a bill is saved.
const ConfirmRedirect = "/transactions"

var (
	ErrClosed    = errors.New("chat service closed")
	ErrDiscarded = errors.New("proposal arrived after the chat was cleared")
	ErrNoSession = errors.New("missing chat session")
)

// Committer persists a confirmed bill.
type Committer interface {
	AddTransaction(ctx context.Context, tx core.Transaction) error
}

type Options struct {
	Proposer  data.BillProposer
	Uploader  data.ImageUploader // optional; data URLs pass through when nil
	Committer Committer
	Logger    *log.Logger
	Now       func() time.Time
	// RequestTimeout bounds each proposal; zero means no limit.
	RequestTimeout time.Duration
	// IdleTTL drops transcripts untouched for this long; zero keeps them.
	IdleTTL time.Duration
}

type session struct {
	transcript *Transcript
	touched    time.Time
}

// Ticket is returned by Send. Done yields the outcome of the proposal
// request once, then is closed.
type Ticket struct {
	User    Entry
	Pending Entry
	Done    <-chan error
}

// Service keeps one transcript per browser session and resolves pending
// entries as proposals arrive. Requests outlive the HTTP request that
// started them and are cancelled by Close.
type Service struct {
	opts   Options
	logger *log.Logger

	mu        sync.Mutex
	sessions  map[string]*session
	listeners []func(sessionID string)
	closed    bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewService(opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		opts:     opts,
		logger:   logger.WithComponent(log.ComponentChat),
		sessions: make(map[string]*session),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// OnChange registers fn to be called after any transcript of a session
// changes. Callbacks run on the goroutine that made the change.
func (s *Service) OnChange(fn func(sessionID string)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Service) notify(sessionID string) {
	s.mu.Lock()
	ls := append([]func(string){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range ls {
		fn(sessionID)
	}
}

func (s *Service) transcript(sessionID string) *Transcript {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.Now()
	if s.opts.IdleTTL > 0 {
		for id, sess := range s.sessions {
			if id != sessionID && now.Sub(sess.touched) > s.opts.IdleTTL && sess.transcript.InFlight() == 0 {
				delete(s.sessions, id)
			}
		}
	}
	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &session{transcript: NewTranscript(s.opts.Now)}
		s.sessions[sessionID] = sess
	}
	sess.touched = now
	return sess.transcript
}

// Entries returns the session's transcript in display order.
func (s *Service) Entries(sessionID string) []Entry {
	if sessionID == "" {
		return nil
	}
	return s.transcript(sessionID).Entries()
}

// Send appends the user's message and a pending entry, then asks the
// proposer in the background. Images given as data URLs are uploaded first
// when an uploader is configured.
func (s *Service) Send(ctx context.Context, sessionID, text, image string) (*Ticket, error) {
	if sessionID == "" {
		return nil, ErrNoSession
	}
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	image = strings.TrimSpace(image)
	if strings.HasPrefix(image, "data:") && s.opts.Uploader != nil {
		url, err := s.opts.Uploader.Upload(ctx, image)
		if err != nil {
			return nil, fmt.Errorf("upload image: %w", err)
		}
		image = url
	}

	tr := s.transcript(sessionID)
	user, pending, err := tr.Send(text, image)
	if err != nil {
		return nil, err
	}
	s.notify(sessionID)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	s.wg.Add(1)
	s.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		defer s.wg.Done()
		defer close(done)
		done <- s.propose(sessionID, tr, user, pending)
	}()

	return &Ticket{User: user, Pending: pending, Done: done}, nil
}

func (s *Service) propose(sessionID string, tr *Transcript, user, pending Entry) error {
	ctx := s.ctx
	if s.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RequestTimeout)
		defer cancel()
	}

	tx, err := s.opts.Proposer.ProposeBill(ctx, user.Message.Request())
	if err != nil {
		s.logger.Error("Bill proposal failed",
			log.FieldSession, sessionID,
			log.FieldMessageID, pending.ID(),
			log.FieldOperation, log.OpPropose,
			log.FieldError, err)
		if tr.Fail(pending.ID(), err) {
			s.notify(sessionID)
		}
		return err
	}

	if !tr.Resolve(pending.ID(), tx) {
		s.logger.Debug("Dropping stale bill proposal",
			log.FieldSession, sessionID,
			log.FieldMessageID, pending.ID())
		return ErrDiscarded
	}
	s.notify(sessionID)
	return nil
}

// Confirm saves the bill proposed in entry id, clears the transcript and
// returns the page to show next. The transcript is kept if saving fails. A
// second Confirm for the same entry while one is saving gets ErrConfirming.
func (s *Service) Confirm(ctx context.Context, sessionID string, id int64) (string, error) {
	if sessionID == "" {
		return "", ErrNoSession
	}
	if s.opts.Committer == nil {
		return "", errors.New("no transaction writer configured")
	}
	tr := s.transcript(sessionID)
	tx, err := tr.Claim(id)
	if err != nil {
		return "", err
	}
	if err := s.opts.Committer.AddTransaction(ctx, tx); err != nil {
		tr.Release(id)
		return "", fmt.Errorf("confirm bill: %w", err)
	}
	tr.Clear()
	s.notify(sessionID)
	return ConfirmRedirect, nil
}

// Cancel clears the transcript without saving anything. Proposals still in
// flight are dropped when they arrive.
func (s *Service) Cancel(sessionID string) {
	if sessionID == "" {
		return
	}
	s.transcript(sessionID).Clear()
	s.notify(sessionID)
}

// Pending counts pending entries across all sessions.
func (s *Service) Pending() int {
	s.mu.Lock()
	trs := make([]*Transcript, 0, len(s.sessions))
	for _, sess := range s.sessions {
		trs = append(trs, sess.transcript)
	}
	s.mu.Unlock()

	n := 0
	for _, tr := range trs {
		n += tr.Pending()
	}
	return n
}

// Sessions returns the number of live transcripts.
func (s *Service) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close cancels in-flight proposals and waits for them to finish.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	return nil
}
