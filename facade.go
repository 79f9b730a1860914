package maxbridge

import (
	"fmt"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	"github.com/goliatone/go-maxbridge/adapters/gocommand"
	maxcommand "github.com/goliatone/go-maxbridge/command"
	maxquery "github.com/goliatone/go-maxbridge/query"
)

type CommandQueryService interface {
	maxcommand.MutatingService
	maxquery.ChatReader
}

type Commands struct {
	CreateWrapper *maxcommand.CreateWrapperCommand
	RequestCode   *maxcommand.RequestCodeCommand
	LoginWithCode *maxcommand.LoginWithCodeCommand
	StartClient   *maxcommand.StartClientCommand
	StopClient    *maxcommand.StopClientCommand
}

type Queries struct {
	GetChats    *maxquery.GetChatsQuery
	GetMessages *maxquery.GetMessagesQuery
}

// Facade exposes the host operations as go-command handlers.
type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

func NewFacade(service CommandQueryService) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("maxbridge: command/query service is required")
	}
	return &Facade{
		service: service,
		commands: Commands{
			CreateWrapper: maxcommand.NewCreateWrapperCommand(service),
			RequestCode:   maxcommand.NewRequestCodeCommand(service),
			LoginWithCode: maxcommand.NewLoginWithCodeCommand(service),
			StartClient:   maxcommand.NewStartClientCommand(service),
			StopClient:    maxcommand.NewStopClientCommand(service),
		},
		queries: Queries{
			GetChats:    maxquery.NewGetChatsQuery(service),
			GetMessages: maxquery.NewGetMessagesQuery(service),
		},
	}, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}

// Subscribe registers the host handlers with registry and the global
// dispatcher. A nil registry creates a private one.
func (f *Facade) Subscribe(registry *command.Registry, runnerOpts ...runner.Option) ([]commanddispatcher.Subscription, error) {
	if f == nil || f.service == nil {
		return nil, fmt.Errorf("maxbridge: facade is not configured")
	}
	return gocommand.SubscribeHost(gocommand.NewRegistryAdapter(registry), f.service, runnerOpts...)
}
