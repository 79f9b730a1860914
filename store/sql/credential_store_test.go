package sqlstore_test

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/goliatone/go-maxbridge/core"
	sqlstore "github.com/goliatone/go-maxbridge/store/sql"
	"github.com/google/uuid"
)

type repairRecorder struct {
	mu      sync.Mutex
	reasons []string
}

func (r *repairRecorder) IncCounter(_ context.Context, name string, _ int64, tags map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reasons = append(r.reasons, name+":"+tags["reason"])
}

func (r *repairRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

func (r *repairRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.reasons...)
}

type warnLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *warnLogger) Trace(string, ...any) {}
func (l *warnLogger) Debug(string, ...any) {}
func (l *warnLogger) Info(string, ...any)  {}
func (l *warnLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}
func (l *warnLogger) Error(string, ...any)                    {}
func (l *warnLogger) Fatal(string, ...any)                    {}
func (l *warnLogger) WithContext(context.Context) core.Logger { return l }

func (l *warnLogger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.warns)
}

func openStore(t *testing.T, dir string, opts ...sqlstore.Option) *sqlstore.CredentialStore {
	t.Helper()
	store, err := sqlstore.Open(context.Background(), dir, opts...)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpen_FreshWorkDirCreatesSingleRecord(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	recorder := &repairRecorder{}

	store := openStore(t, dir, sqlstore.WithMetricsRecorder(recorder))
	if _, err := os.Stat(sqlstore.SessionPath(dir)); err != nil {
		t.Fatalf("expected session file: %v", err)
	}
	if store.Path() != sqlstore.SessionPath(dir) {
		t.Fatalf("unexpected path %q", store.Path())
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one record, got %d", count)
	}
	record, err := store.Record(ctx)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if record.DeviceID == uuid.Nil || record.Token != nil {
		t.Fatalf("unexpected fresh record %#v", record)
	}
	if reasons := recorder.snapshot(); len(reasons) != 0 {
		t.Fatalf("first creation is not a repair, got %v", reasons)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	reopened := openStore(t, dir)
	again, err := reopened.GetOrCreateDeviceID(ctx)
	if err != nil {
		t.Fatalf("device id after reopen: %v", err)
	}
	if again != record.DeviceID {
		t.Fatalf("expected device id %s to survive reopen, got %s", record.DeviceID, again)
	}
}

func TestCredentialStore_SetTokenRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := openStore(t, dir)

	if token, err := store.GetToken(ctx); err != nil || token != nil {
		t.Fatalf("expected no token, got %v (%v)", token, err)
	}
	if err := store.SetToken(ctx, "abc123"); err != nil {
		t.Fatalf("set token: %v", err)
	}
	if err := store.SetToken(ctx, "abc123"); err != nil {
		t.Fatalf("set same token: %v", err)
	}
	token, err := store.GetToken(ctx)
	if err != nil {
		t.Fatalf("get token: %v", err)
	}
	if token == nil || *token != "abc123" {
		t.Fatalf("expected abc123, got %v", token)
	}

	_ = store.Close()
	reopened := openStore(t, dir)
	token, err = reopened.GetToken(ctx)
	if err != nil || token == nil || *token != "abc123" {
		t.Fatalf("expected token to persist, got %v (%v)", token, err)
	}

	if err := reopened.ClearToken(ctx); err != nil {
		t.Fatalf("clear token: %v", err)
	}
	if token, _ := reopened.GetToken(ctx); token != nil {
		t.Fatalf("expected token to be cleared, got %q", *token)
	}
}

func TestCredentialStore_GetOrCreateDeviceIDIsStable(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, t.TempDir())

	first, err := store.GetOrCreateDeviceID(ctx)
	if err != nil {
		t.Fatalf("first device id: %v", err)
	}
	second, err := store.GetOrCreateDeviceID(ctx)
	if err != nil {
		t.Fatalf("second device id: %v", err)
	}
	if first != second {
		t.Fatalf("expected stable device id, got %s then %s", first, second)
	}
	if err := store.SetToken(ctx, "t"); err != nil {
		t.Fatalf("set token: %v", err)
	}
	third, _ := store.GetOrCreateDeviceID(ctx)
	if third != first {
		t.Fatalf("set_token must not rotate the device id")
	}
}

func TestCredentialStore_EnforceSingleRecordKeepsEarliest(t *testing.T) {
	ctx := context.Background()
	recorder := &repairRecorder{}
	logger := &warnLogger{}
	store := openStore(t, t.TempDir(), sqlstore.WithMetricsRecorder(recorder), sqlstore.WithLogger(logger))

	original, err := store.GetOrCreateDeviceID(ctx)
	if err != nil {
		t.Fatalf("device id: %v", err)
	}
	intruder := uuid.New().String()
	if _, err := store.DB().ExecContext(ctx, "INSERT INTO auth (device_id, token) VALUES (?, ?)", intruder, "other"); err != nil {
		t.Fatalf("insert raw record: %v", err)
	}
	if count, _ := store.Count(ctx); count != 2 {
		t.Fatalf("expected two raw records, got %d", count)
	}

	if err := store.EnforceSingleRecord(ctx); err != nil {
		t.Fatalf("enforce: %v", err)
	}
	if count, _ := store.Count(ctx); count != 1 {
		t.Fatalf("expected one record after repair, got %d", count)
	}
	kept, err := store.Record(ctx)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if kept.DeviceID != original || kept.Token != nil {
		t.Fatalf("expected earliest record to survive, got %#v", kept)
	}
	reasons := recorder.snapshot()
	if len(reasons) != 1 || reasons[0] != "maxbridge.credential_store.repair.total:duplicate" {
		t.Fatalf("expected one duplicate repair metric, got %v", reasons)
	}
	if logger.count() != 1 {
		t.Fatalf("expected one repair warning, got %d", logger.count())
	}
}

func TestCredentialStore_ReadsRepairDuplicates(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, t.TempDir())
	original, _ := store.GetOrCreateDeviceID(ctx)
	if _, err := store.DB().ExecContext(ctx, "INSERT INTO auth (device_id, token) VALUES (?, NULL)", uuid.New().String()); err != nil {
		t.Fatalf("insert raw record: %v", err)
	}

	if err := store.SetToken(ctx, "fresh"); err != nil {
		t.Fatalf("set token: %v", err)
	}
	if count, _ := store.Count(ctx); count != 1 {
		t.Fatalf("expected writer to repair duplicates, got %d", count)
	}
	record, _ := store.Record(ctx)
	if record.DeviceID != original || record.Token == nil || *record.Token != "fresh" {
		t.Fatalf("unexpected record %#v", record)
	}
}

func TestCredentialStore_RecreatesMissingRecord(t *testing.T) {
	ctx := context.Background()
	recorder := &repairRecorder{}
	store := openStore(t, t.TempDir(), sqlstore.WithMetricsRecorder(recorder))
	original, _ := store.GetOrCreateDeviceID(ctx)

	if _, err := store.DB().ExecContext(ctx, "DELETE FROM auth"); err != nil {
		t.Fatalf("delete records: %v", err)
	}
	token, err := store.GetToken(ctx)
	if err != nil {
		t.Fatalf("get token after delete: %v", err)
	}
	if token != nil {
		t.Fatalf("expected nil token on recreated record")
	}
	replacement, _ := store.GetOrCreateDeviceID(ctx)
	if replacement == uuid.Nil || replacement == original {
		t.Fatalf("expected a fresh device id, got %s", replacement)
	}
	reasons := recorder.snapshot()
	if len(reasons) != 1 || reasons[0] != "maxbridge.credential_store.repair.total:missing" {
		t.Fatalf("expected one missing repair metric, got %v", reasons)
	}
}

func TestCredentialStore_ConcurrentAccessKeepsOneRecord(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	first := openStore(t, dir)
	second := openStore(t, dir)

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 16; i++ {
		store := first
		if i%2 == 1 {
			store = second
		}
		wg.Add(1)
		go func(i int, store *sqlstore.CredentialStore) {
			defer wg.Done()
			switch i % 4 {
			case 0:
				errs <- store.SetToken(ctx, "token")
			case 1:
				_, err := store.GetToken(ctx)
				errs <- err
			case 2:
				_, err := store.GetOrCreateDeviceID(ctx)
				errs <- err
			default:
				errs <- store.EnforceSingleRecord(ctx)
			}
		}(i, store)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent operation: %v", err)
		}
	}

	if count, err := first.Count(ctx); err != nil || count != 1 {
		t.Fatalf("expected exactly one record, got %d (%v)", count, err)
	}
	a, _ := first.GetOrCreateDeviceID(ctx)
	b, _ := second.GetOrCreateDeviceID(ctx)
	if a != b {
		t.Fatalf("stores on one work dir disagree: %s vs %s", a, b)
	}
}

func TestCredentialStore_ClosedStoreFailsWithStorageError(t *testing.T) {
	store := openStore(t, t.TempDir())
	_ = store.Close()
	if err := store.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	_, err := store.GetToken(context.Background())
	if err == nil {
		t.Fatalf("expected error on closed store")
	}
	if !sqlstore.IsStorageError(err) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestOpen_RequiresWorkDir(t *testing.T) {
	if _, err := sqlstore.Open(context.Background(), " "); err == nil {
		t.Fatalf("expected error for empty work dir")
	}
}
