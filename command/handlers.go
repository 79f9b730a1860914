package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-maxbridge/core"
)

// MutatingService is the part of the host that changes client state.
type MutatingService interface {
	CreateWrapper(ctx context.Context, phone string, workDir string) core.Envelope
	RequestCode(ctx context.Context, phone string, language string) core.Envelope
	LoginWithCode(ctx context.Context, tempToken string, code string) core.Envelope
	StartClient(ctx context.Context) core.Envelope
	StopClient(ctx context.Context) core.Envelope
}

type CreateWrapperCommand struct {
	service MutatingService
}

func NewCreateWrapperCommand(service MutatingService) *CreateWrapperCommand {
	return &CreateWrapperCommand{service: service}
}

func (c *CreateWrapperCommand) Execute(ctx context.Context, msg CreateWrapperMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: create wrapper service is required")
	}
	return finish(ctx, c.service.CreateWrapper(ctx, msg.Phone, msg.WorkDir))
}

type RequestCodeCommand struct {
	service MutatingService
}

func NewRequestCodeCommand(service MutatingService) *RequestCodeCommand {
	return &RequestCodeCommand{service: service}
}

func (c *RequestCodeCommand) Execute(ctx context.Context, msg RequestCodeMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: request code service is required")
	}
	return finish(ctx, c.service.RequestCode(ctx, msg.Phone, msg.Language))
}

type LoginWithCodeCommand struct {
	service MutatingService
}

func NewLoginWithCodeCommand(service MutatingService) *LoginWithCodeCommand {
	return &LoginWithCodeCommand{service: service}
}

func (c *LoginWithCodeCommand) Execute(ctx context.Context, msg LoginWithCodeMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: login service is required")
	}
	return finish(ctx, c.service.LoginWithCode(ctx, msg.TempToken, msg.Code))
}

type StartClientCommand struct {
	service MutatingService
}

func NewStartClientCommand(service MutatingService) *StartClientCommand {
	return &StartClientCommand{service: service}
}

func (c *StartClientCommand) Execute(ctx context.Context, _ StartClientMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: start client service is required")
	}
	return finish(ctx, c.service.StartClient(ctx))
}

type StopClientCommand struct {
	service MutatingService
}

func NewStopClientCommand(service MutatingService) *StopClientCommand {
	return &StopClientCommand{service: service}
}

func (c *StopClientCommand) Execute(ctx context.Context, _ StopClientMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: stop client service is required")
	}
	return finish(ctx, c.service.StopClient(ctx))
}

// finish stores the envelope for the caller, then reports failures as errors.
func finish(ctx context.Context, env core.Envelope) error {
	storeResult(ctx, env)
	return env.Err()
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
