package sqlstore

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/goliatone/go-maxbridge/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const metricRepairs = "maxbridge.credential_store.repair.total"

// CredentialStore keeps the single auth record of a work directory. Every
// operation is one short transaction; nothing is cached in memory.
type CredentialStore struct {
	db              *bun.DB
	repo            repository.Repository[*authRecord]
	logger          core.Logger
	metricsRecorder core.MetricsRecorder
	path            string

	ready     atomic.Bool
	closeOnce sync.Once
	closer    func()
	closed    atomic.Bool
}

// Path is the session file location, empty for stores built on a caller DB.
func (s *CredentialStore) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func (s *CredentialStore) DB() *bun.DB {
	if s == nil {
		return nil
	}
	return s.db
}

// Record returns a copy of the current record.
func (s *CredentialStore) Record(ctx context.Context) (core.CredentialRecord, error) {
	var out core.CredentialRecord
	err := s.withRecord(ctx, "record", func(context.Context, bun.Tx, *authRecord) error {
		return nil
	}, func(record *authRecord) error {
		converted, err := record.toDomain()
		if err != nil {
			return err
		}
		out = converted
		return nil
	})
	return out, err
}

func (s *CredentialStore) GetToken(ctx context.Context) (*string, error) {
	record, err := s.Record(ctx)
	if err != nil {
		return nil, err
	}
	return record.Token, nil
}

func (s *CredentialStore) GetOrCreateDeviceID(ctx context.Context) (uuid.UUID, error) {
	record, err := s.Record(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	return record.DeviceID, nil
}

// SetToken stores token on the single record, creating the record first when
// needed. Writing the current value again does not touch the file.
func (s *CredentialStore) SetToken(ctx context.Context, token string) error {
	return s.withRecord(ctx, "set_token", func(ctx context.Context, tx bun.Tx, record *authRecord) error {
		if record.Token != nil && *record.Token == token {
			return nil
		}
		_, err := tx.NewUpdate().
			Model((*authRecord)(nil)).
			Set("token = ?", token).
			Where("device_id = ?", record.DeviceID).
			Exec(ctx)
		if err != nil {
			return err
		}
		record.Token = &token
		return nil
	}, nil)
}

// ClearToken drops the session token and keeps the device identifier.
func (s *CredentialStore) ClearToken(ctx context.Context) error {
	return s.withRecord(ctx, "clear_token", func(ctx context.Context, tx bun.Tx, record *authRecord) error {
		if record.Token == nil {
			return nil
		}
		_, err := tx.NewUpdate().
			Model((*authRecord)(nil)).
			Set("token = NULL").
			Where("device_id = ?", record.DeviceID).
			Exec(ctx)
		return err
	}, nil)
}

// EnforceSingleRecord keeps the earliest record, deletes every other one and
// creates a record when none exists.
func (s *CredentialStore) EnforceSingleRecord(ctx context.Context) error {
	if err := s.check("enforce_single_record"); err != nil {
		return err
	}
	return s.enforce(ctx, false)
}

// Count reports how many auth rows are stored. It does not repair.
func (s *CredentialStore) Count(ctx context.Context) (int, error) {
	if err := s.check("count"); err != nil {
		return 0, err
	}
	_, total, err := s.repo.List(ctx, repository.SelectPaginate(1, 0))
	if err != nil {
		return 0, storageError("count", err, nil)
	}
	return total, nil
}

func (s *CredentialStore) Close() error {
	if s == nil {
		return nil
	}
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		if s.closer != nil {
			s.closer()
		}
	})
	return nil
}

func (s *CredentialStore) check(operation string) error {
	if s == nil || s.db == nil || s.repo == nil {
		return storageError(operation, errStoreNotConfigured, nil)
	}
	if s.closed.Load() {
		return storageError(operation, errStoreClosed, nil)
	}
	return nil
}

// withRecord runs fn inside one transaction on the repaired single record.
// after runs once the transaction committed.
func (s *CredentialStore) withRecord(
	ctx context.Context,
	operation string,
	fn func(ctx context.Context, tx bun.Tx, record *authRecord) error,
	after func(record *authRecord) error,
) error {
	if err := s.check(operation); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	var kept *authRecord
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := s.repair(ctx, tx, false)
		if err != nil {
			return err
		}
		if err := fn(ctx, tx, record); err != nil {
			return err
		}
		kept = record
		return nil
	})
	if err != nil {
		return storageError(operation, err, nil)
	}
	if after != nil {
		if err := after(kept); err != nil {
			return storageError(operation, err, map[string]any{"device_id": kept.DeviceID})
		}
	}
	return nil
}

func (s *CredentialStore) enforce(ctx context.Context, opening bool) error {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := s.repair(ctx, tx, opening)
		return err
	})
	if err != nil {
		return storageError("enforce_single_record", err, nil)
	}
	return nil
}

// repair must only use tx: the pool holds a single connection.
func (s *CredentialStore) repair(ctx context.Context, tx bun.Tx, opening bool) (*authRecord, error) {
	records := []*authRecord{}
	if err := tx.NewSelect().
		Model(&records).
		OrderExpr("rowid ASC").
		Scan(ctx); err != nil {
		return nil, err
	}

	if len(records) == 0 {
		record := newAuthRecord()
		created, err := s.repo.CreateTx(ctx, tx, record)
		if err != nil {
			return nil, err
		}
		if opening && !s.ready.Load() {
			s.logger.Debug("credential record created", "device_id", created.DeviceID)
		} else {
			s.observeRepair(ctx, "missing", map[string]any{"device_id": created.DeviceID})
		}
		return created, nil
	}

	kept := records[0]
	if len(records) == 1 {
		return kept, nil
	}

	removed := make([]string, 0, len(records)-1)
	for _, record := range records[1:] {
		removed = append(removed, record.DeviceID)
	}
	if _, err := tx.NewDelete().
		Model((*authRecord)(nil)).
		Where("device_id IN (?)", bun.In(removed)).
		Exec(ctx); err != nil {
		return nil, err
	}
	s.observeRepair(ctx, "duplicate", map[string]any{
		"device_id": kept.DeviceID,
		"removed":   len(removed),
	})
	return kept, nil
}

func (s *CredentialStore) observeRepair(ctx context.Context, reason string, fields map[string]any) {
	args := []any{"reason", reason}
	for key, value := range fields {
		args = append(args, key, value)
	}
	s.logger.WithContext(ctx).Warn("credential store invariant repaired", args...)
	if s.metricsRecorder != nil {
		s.metricsRecorder.IncCounter(ctx, metricRepairs, 1, map[string]string{"reason": reason})
	}
}
