package sqlstore

import (
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

func authHandlers() repository.ModelHandlers[*authRecord] {
	return repository.ModelHandlers[*authRecord]{
		NewRecord: func() *authRecord {
			return &authRecord{}
		},
		GetID: func(record *authRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.DeviceID)
		},
		SetID: func(record *authRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.DeviceID = id.String()
		},
		GetIdentifier: func() string {
			return "device_id"
		},
		GetIdentifierValue: func(record *authRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.DeviceID)
		},
	}
}

func parseUUID(value string) uuid.UUID {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil
	}
	return parsed
}
