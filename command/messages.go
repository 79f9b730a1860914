package command

import "strings"

const (
	TypeCreateWrapper = "maxbridge.command.wrapper.create"
	TypeRequestCode   = "maxbridge.command.auth.request_code"
	TypeLoginWithCode = "maxbridge.command.auth.login"
	TypeStartClient   = "maxbridge.command.client.start"
	TypeStopClient    = "maxbridge.command.client.stop"
)

type CreateWrapperMessage struct {
	Phone   string
	WorkDir string
}

func (CreateWrapperMessage) Type() string { return TypeCreateWrapper }

func (m CreateWrapperMessage) Validate() error {
	if strings.TrimSpace(m.Phone) == "" {
		return commandValidationError("phone", "phone is required")
	}
	return nil
}

// RequestCodeMessage falls back to the wrapper phone and the configured
// language when fields are empty.
type RequestCodeMessage struct {
	Phone    string
	Language string
}

func (RequestCodeMessage) Type() string { return TypeRequestCode }

func (RequestCodeMessage) Validate() error { return nil }

type LoginWithCodeMessage struct {
	TempToken string
	Code      string
}

func (LoginWithCodeMessage) Type() string { return TypeLoginWithCode }

func (m LoginWithCodeMessage) Validate() error {
	if strings.TrimSpace(m.TempToken) == "" {
		return commandValidationError("temp_token", "temporary token is required")
	}
	if strings.TrimSpace(m.Code) == "" {
		return commandValidationError("code", "code is required")
	}
	return nil
}

type StartClientMessage struct{}

func (StartClientMessage) Type() string { return TypeStartClient }

func (StartClientMessage) Validate() error { return nil }

type StopClientMessage struct{}

func (StopClientMessage) Type() string { return TypeStopClient }

func (StopClientMessage) Validate() error { return nil }
