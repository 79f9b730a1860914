package protocol

import (
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-maxbridge/core"
)

// ErrConnectionLost fails requests still waiting when the socket goes away.
var ErrConnectionLost = goerrors.New("protocol: connection lost", goerrors.CategoryExternal).
	WithCode(502).
	WithTextCode(core.HostErrorProtocol)

// ErrNoToken is returned by Sync before a login stored a session token.
var ErrNoToken = goerrors.New("protocol: no session token stored", goerrors.CategoryAuth).
	WithCode(401).
	WithTextCode(core.HostErrorProtocol)

func transportError(message string, source error, metadata map[string]any) error {
	var err *goerrors.Error
	if source == nil {
		err = goerrors.New(message, goerrors.CategoryExternal)
	} else {
		err = goerrors.Wrap(source, goerrors.CategoryExternal, message)
	}
	err = err.WithCode(502).WithTextCode(core.HostErrorProtocol)
	if len(metadata) > 0 {
		err = err.WithMetadata(metadata)
	}
	return err
}

func timeoutError(opcode Opcode, source error) error {
	return goerrors.Wrap(source, goerrors.CategoryExternal, "protocol: "+opcode.String()+" timed out").
		WithCode(504).
		WithTextCode(core.HostErrorProtocol).
		WithMetadata(map[string]any{"opcode": opcode.String()})
}

func responseError(opcode Opcode, message string) error {
	return goerrors.New("protocol: "+message, goerrors.CategoryExternal).
		WithCode(502).
		WithTextCode(core.HostErrorProtocol).
		WithMetadata(map[string]any{"opcode": opcode.String()})
}
