package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-maxbridge/core"
)

var (
	_ gocmd.Querier[GetChatsMessage, core.Envelope]    = (*GetChatsQuery)(nil)
	_ gocmd.Querier[GetMessagesMessage, core.Envelope] = (*GetMessagesQuery)(nil)

	_ ChatReader = (*core.Host)(nil)
)
