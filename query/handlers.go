package query

import (
	"context"

	"github.com/goliatone/go-maxbridge/core"
)

type ChatReader interface {
	GetChats(ctx context.Context) core.Envelope
	GetMessages(ctx context.Context, chatID int64, limit int) core.Envelope
}

type GetChatsQuery struct {
	reader ChatReader
}

func NewGetChatsQuery(reader ChatReader) *GetChatsQuery {
	return &GetChatsQuery{reader: reader}
}

func (q *GetChatsQuery) Query(ctx context.Context, _ GetChatsMessage) (core.Envelope, error) {
	if q == nil || q.reader == nil {
		return core.Envelope{}, queryDependencyError("query: chat reader is required")
	}
	env := q.reader.GetChats(ctx)
	return env, env.Err()
}

type GetMessagesQuery struct {
	reader ChatReader
}

func NewGetMessagesQuery(reader ChatReader) *GetMessagesQuery {
	return &GetMessagesQuery{reader: reader}
}

func (q *GetMessagesQuery) Query(ctx context.Context, msg GetMessagesMessage) (core.Envelope, error) {
	if q == nil || q.reader == nil {
		return core.Envelope{}, queryDependencyError("query: chat reader is required")
	}
	env := q.reader.GetMessages(ctx, msg.ChatID, msg.Limit)
	return env, env.Err()
}
