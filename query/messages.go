package query

const (
	TypeGetChats    = "maxbridge.query.chats.list"
	TypeGetMessages = "maxbridge.query.messages.list"
)

type GetChatsMessage struct{}

func (GetChatsMessage) Type() string { return TypeGetChats }

func (GetChatsMessage) Validate() error { return nil }

// GetMessagesMessage reads the newest messages of a chat. A zero limit uses
// the configured history limit.
type GetMessagesMessage struct {
	ChatID int64
	Limit  int
}

func (GetMessagesMessage) Type() string { return TypeGetMessages }

func (m GetMessagesMessage) Validate() error {
	if m.ChatID == 0 {
		return queryValidationError("chat_id", "chat id is required")
	}
	if m.Limit < 0 {
		return queryValidationError("limit", "limit must be >= 0")
	}
	return nil
}
