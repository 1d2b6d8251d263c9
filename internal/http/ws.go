package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/olahol/melody"

	"splitbill/internal/log"
	"splitbill/internal/session"
)

const sessionKey = "session_id"

var transcriptUpdated = []byte(`{"type":"` + EventTranscriptUpdated + `"}`)

// chatHub pushes transcript changes to the browser tabs of one session.
// Clients never send anything; the socket is a doorbell and the page
// fetches the transcript partial when it rings.
type chatHub struct {
	m      *melody.Melody
	logger *log.Logger
}

func newChatHub(logger *log.Logger) *chatHub {
	m := melody.New()
	m.Config.MaxMessageSize = 512
	// Keep-alive for proxies that drop idle connections.
	m.Config.PingPeriod = 30 * time.Second
	m.Config.PongWait = 60 * time.Second

	h := &chatHub{m: m, logger: logger}

	m.HandleConnect(func(s *melody.Session) {
		id, _ := s.Get(sessionKey)
		h.logger.Debug("Chat socket connected", log.FieldSession, id)
	})
	m.HandleDisconnect(func(s *melody.Session) {
		id, _ := s.Get(sessionKey)
		h.logger.Debug("Chat socket disconnected", log.FieldSession, id)
	})
	m.HandleError(func(s *melody.Session, err error) {
		id, _ := s.Get(sessionKey)
		h.logger.Debug("Chat socket error", log.FieldSession, id, log.FieldError, err)
	})
	return h
}

func (h *chatHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, ok := session.ID(r.Context())
	if !ok {
		http.Error(w, "missing session", http.StatusUnauthorized)
		return
	}
	if err := h.m.HandleRequestWithKeys(w, r, map[string]any{sessionKey: id}); err != nil {
		h.logger.WarnContext(r.Context(), "Websocket upgrade failed",
			log.FieldSession, id,
			log.FieldError, err)
	}
}

// Notify tells every socket of sessionID that its transcript changed.
func (h *chatHub) Notify(sessionID string) {
	err := h.m.BroadcastFilter(transcriptUpdated, func(s *melody.Session) bool {
		id, ok := s.Get(sessionKey)
		return ok && id == sessionID
	})
	if err != nil && !errors.Is(err, melody.ErrClosed) {
		h.logger.Warn("Transcript broadcast failed", log.FieldSession, sessionID, log.FieldError, err)
	}
}

func (h *chatHub) Len() int { return h.m.Len() }

func (h *chatHub) Close() error {
	if h.m.IsClosed() {
		return nil
	}
	return h.m.Close()
}
