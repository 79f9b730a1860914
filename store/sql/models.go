package sqlstore

import (
	"strings"

	"github.com/goliatone/go-maxbridge/core"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type authRecord struct {
	bun.BaseModel `bun:"table:auth,alias:a"`

	DeviceID string  `bun:"device_id,pk"`
	Token    *string `bun:"token"`
}

func newAuthRecord() *authRecord {
	return &authRecord{DeviceID: uuid.New().String()}
}

func (r *authRecord) toDomain() (core.CredentialRecord, error) {
	if r == nil {
		return core.CredentialRecord{}, nil
	}
	deviceID, err := uuid.Parse(strings.TrimSpace(r.DeviceID))
	if err != nil {
		return core.CredentialRecord{}, err
	}
	out := core.CredentialRecord{DeviceID: deviceID}
	if r.Token != nil {
		token := *r.Token
		out.Token = &token
	}
	return out, nil
}
