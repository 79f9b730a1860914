package sqlstore

import "github.com/goliatone/go-maxbridge/core"

var _ core.CredentialStore = (*CredentialStore)(nil)
