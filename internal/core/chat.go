package core

const (
	MessageBill      MessageType = "bill"
	MessageImageText MessageType = "image+text"

	SenderUser Sender = "user"
	SenderGPT  Sender = "gpt"
)

type (
	MessageType string
	Sender      string

	// ChatMessage is the wire form of a transcript entry. Bill entries carry
	// Transaction; image+text entries carry ImageURL and Message.
	ChatMessage struct {
		ID          int64        `json:"id"`
		Type        MessageType  `json:"type"`
		Sender      Sender       `json:"sender"`
		ImageURL    string       `json:"imageUrl,omitempty"`
		Message     string       `json:"message,omitempty"`
		Transaction *Transaction `json:"transaction,omitempty"`
	}
)

// ChatRequest is the body sent to the assistant endpoint. Unlike ChatMessage
// it always includes imageUrl and message, which the backend requires.
type ChatRequest struct {
	ID       int64       `json:"id"`
	Type     MessageType `json:"type"`
	Sender   Sender      `json:"sender"`
	ImageURL string      `json:"imageUrl"`
	Message  string      `json:"message"`
}

// Request converts a user-authored message into the assistant request body.
func (m ChatMessage) Request() ChatRequest {
	return ChatRequest{
		ID:       m.ID,
		Type:     m.Type,
		Sender:   m.Sender,
		ImageURL: m.ImageURL,
		Message:  m.Message,
	}
}
