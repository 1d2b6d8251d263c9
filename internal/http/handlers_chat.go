package http

import (
	"errors"
	"net/http"

	"splitbill/internal/chat"
	"splitbill/internal/core"
	"splitbill/internal/log"
	"splitbill/internal/session"
)

const transcriptPartial = "transcript"

type transcriptView struct {
	Entries []chat.Entry
	Viewer  core.Person
}

type chatPage struct {
	page
	Transcript transcriptView
}

func (s *Server) transcript(r *http.Request, sessionID string) transcriptView {
	return transcriptView{
		Entries: s.chat.Entries(sessionID),
		Viewer:  s.state.Viewer(r.Context()).Data,
	}
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	sid, _ := session.ID(r.Context())
	p := s.newPage(r, "Chat", "chat")
	s.renderPage(w, r, http.StatusOK, "chat.html", chatPage{
		page:       p,
		Transcript: transcriptView{Entries: s.chat.Entries(sid), Viewer: p.Viewer},
	})
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	sid, _ := session.ID(r.Context())
	if err := s.render.Partial(w, http.StatusOK, transcriptPartial, s.transcript(r, sid)); err != nil {
		s.logRenderError(r, err)
		InternalServerError("Could not show the conversation").Write(w)
	}
}

// writeTranscript answers an HTMX action with the fresh transcript.
func (s *Server) writeTranscript(w http.ResponseWriter, r *http.Request, sid string, b *HTMXResponseBuilder) {
	html, err := s.render.Fragment(transcriptPartial, s.transcript(r, sid))
	if err != nil {
		s.logRenderError(r, err)
		InternalServerError("Could not show the conversation").Write(w)
		return
	}
	b.BodyHTML(html).Write(w)
}

func (s *Server) logRenderError(r *http.Request, err error) {
	log.FromContext(r.Context()).WithComponent(log.ComponentTemplate).
		ErrorContext(r.Context(), "Partial render failed",
			log.FieldOperation, log.OpRender,
			log.FieldError, err)
}

// handleSendMessage accepts text plus an optional image, either a camera
// data URL in "image" or an uploaded file in "photo". The assistant answers
// in the background; the page hears about it over the websocket.
func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid, _ := session.ID(ctx)
	logger := log.FromContext(ctx).WithComponent(log.ComponentChat)

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		switch {
		case errors.Is(err, ErrBodyTooBig):
			ErrorResponse(http.StatusRequestEntityTooLarge, "That photo is too large").Write(w)
		case errors.Is(err, ErrNotImage):
			UnprocessableEntityError("Only images can be attached").Write(w)
		default:
			BadRequestError("Invalid request format").Write(w)
		}
		return
	}

	image := parser.Get("image")
	if photo, ok := parser.File("photo"); ok {
		image = photo
	}

	ticket, err := s.chat.Send(ctx, sid, parser.Get("message"), image)
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		UnprocessableEntityError("Type a message or add a photo").Write(w)
		return
	case errors.Is(err, chat.ErrClosed):
		ErrorResponse(http.StatusServiceUnavailable, "The assistant is shutting down").Write(w)
		return
	case err != nil:
		logger.ErrorContext(ctx, "Chat send failed",
			log.FieldSession, sid,
			log.FieldOperation, log.OpUpload,
			log.FieldError, err)
		ErrorResponse(http.StatusBadGateway, "Could not upload the photo").Write(w)
		return
	}

	logger.InfoContext(ctx, "Chat message sent",
		log.FieldSession, sid,
		log.FieldMessageID, ticket.User.ID())
	s.writeTranscript(w, r, sid, NewHTMXResponse().TriggerFormReset())
}

// handleConfirm saves the proposal in entry "id", clears the conversation
// and sends the browser to the bill list.
func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid, _ := session.ID(ctx)

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}
	id, err := ParseID(parser.Get("id"))
	if err != nil {
		BadRequestError("Missing bill to confirm").Write(w)
		return
	}

	target, err := s.chat.Confirm(ctx, sid, id)
	switch {
	case errors.Is(err, chat.ErrUnknownEntry):
		NotFoundError("That bill is no longer in the conversation").Write(w)
		return
	case errors.Is(err, chat.ErrNotResolved):
		ErrorResponse(http.StatusConflict, "The assistant is still working on that bill").Write(w)
		return
	case errors.Is(err, chat.ErrConfirming):
		ErrorResponse(http.StatusConflict, "That bill is already being saved").Write(w)
		return
	case isValidationError(err):
		UnprocessableEntityError("This bill cannot be saved: " + err.Error()).Write(w)
		return
	case err != nil:
		log.FromContext(ctx).WithComponent(log.ComponentChat).
			ErrorContext(ctx, "Saving confirmed bill failed",
				log.FieldSession, sid,
				log.FieldMessageID, id,
				log.FieldOperation, log.OpCreate,
				log.FieldError, err)
		ErrorResponse(http.StatusBadGateway, "Could not save the bill").Write(w)
		return
	}

	if r.Header.Get("HX-Request") == "" {
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}
	NewHTMXResponse().
		Redirect(target).
		TriggerChatCleared().
		TriggerSuccessNotification("Bill saved").
		Write(w)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	sid, _ := session.ID(r.Context())
	s.chat.Cancel(sid)
	s.writeTranscript(w, r, sid, NewHTMXResponse().TriggerChatCleared())
}

func isValidationError(err error) bool {
	for _, target := range []error{
		core.ErrEmptyTitle,
		core.ErrInvalidAmount,
		core.ErrInvalidDate,
		core.ErrInvalidType,
		core.ErrNoParticipants,
		core.ErrMissingSplitGroup,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
