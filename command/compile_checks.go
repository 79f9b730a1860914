package command

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-maxbridge/core"
)

var (
	_ gocmd.Commander[CreateWrapperMessage] = (*CreateWrapperCommand)(nil)
	_ gocmd.Commander[RequestCodeMessage]   = (*RequestCodeCommand)(nil)
	_ gocmd.Commander[LoginWithCodeMessage] = (*LoginWithCodeCommand)(nil)
	_ gocmd.Commander[StartClientMessage]   = (*StartClientCommand)(nil)
	_ gocmd.Commander[StopClientMessage]    = (*StopClientCommand)(nil)

	_ MutatingService = (*core.Host)(nil)
)
