package core

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type stubLogger struct{}

func (stubLogger) Trace(string, ...any) {}
func (stubLogger) Debug(string, ...any) {}
func (stubLogger) Info(string, ...any)  {}
func (stubLogger) Warn(string, ...any)  {}
func (stubLogger) Error(string, ...any) {}
func (stubLogger) Fatal(string, ...any) {}
func (s stubLogger) WithContext(context.Context) Logger {
	return s
}

type stubLoggerProvider struct {
	logger Logger
}

func (s stubLoggerProvider) GetLogger(string) Logger {
	return s.logger
}

type memoryCredentialStore struct {
	mu       sync.Mutex
	deviceID uuid.UUID
	token    *string
	closed   bool
}

func newMemoryCredentialStore() *memoryCredentialStore {
	return &memoryCredentialStore{deviceID: uuid.New()}
}

func (s *memoryCredentialStore) Record(context.Context) (CredentialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CredentialRecord{DeviceID: s.deviceID, Token: s.token}, nil
}

func (s *memoryCredentialStore) GetToken(context.Context) (*string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *memoryCredentialStore) GetOrCreateDeviceID(context.Context) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deviceID, nil
}

func (s *memoryCredentialStore) SetToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = &token
	return nil
}

func (s *memoryCredentialStore) EnforceSingleRecord(context.Context) error { return nil }

func (s *memoryCredentialStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *memoryCredentialStore) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeClient struct {
	mu        sync.Mutex
	store     *memoryCredentialStore
	connected bool
	me        *Profile
	chatIDs   []int64
	chats     []Chat
	messages  []Message

	connectErr error
	requestErr error
	loginErr   error
	syncErr    error
	historyErr error

	requestedPhone    string
	requestedLanguage string
	historyLimit      int
	closeCalls        int
}

func newFakeClient(store *memoryCredentialStore) *fakeClient {
	return &fakeClient{store: store}
}

func (c *fakeClient) Connect(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connectErr != nil {
		return c.connectErr
	}
	c.connected = true
	return nil
}

func (c *fakeClient) Close(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	c.closeCalls++
	return nil
}

func (c *fakeClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeClient) RequestCode(_ context.Context, phone string, language string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requestedPhone = phone
	c.requestedLanguage = language
	if c.requestErr != nil {
		return "", c.requestErr
	}
	return "temp-" + phone, nil
}

func (c *fakeClient) LoginWithCode(ctx context.Context, tempToken string, code string) (LoginResult, error) {
	if c.loginErr != nil {
		return LoginResult{}, c.loginErr
	}
	token := "session-" + tempToken + "-" + code
	if err := c.store.SetToken(ctx, token); err != nil {
		return LoginResult{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.me = &Profile{ID: 1001, FirstName: "Ada"}
	return LoginResult{Token: token, Me: c.me}, nil
}

func (c *fakeClient) Sync(context.Context) (*Profile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.syncErr != nil {
		return nil, c.syncErr
	}
	if c.me == nil {
		c.me = &Profile{ID: 1001, FirstName: "Ada"}
	}
	return c.me, nil
}

func (c *fakeClient) Token() string {
	token, _ := c.store.GetToken(context.Background())
	if token == nil {
		return ""
	}
	return *token
}

func (c *fakeClient) Me() *Profile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.me
}

func (c *fakeClient) ChatIDs() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int64(nil), c.chatIDs...)
}

func (c *fakeClient) GetChats(_ context.Context, ids []int64) ([]Chat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := []Chat{}
	for _, chat := range c.chats {
		for _, id := range ids {
			if chat.ID == id {
				out = append(out, chat)
			}
		}
	}
	return out, nil
}

func (c *fakeClient) FetchHistory(_ context.Context, chatID int64, limit int) ([]Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.historyLimit = limit
	if c.historyErr != nil {
		return nil, c.historyErr
	}
	out := []Message{}
	for _, message := range c.messages {
		if message.ChatID == chatID && len(out) < limit {
			out = append(out, message)
		}
	}
	return out, nil
}

type fakeFactory struct {
	mu       sync.Mutex
	calls    int
	settings []ClientSettings
	clients  []*fakeClient
	err      error
	prepare  func(*fakeClient)
}

func (f *fakeFactory) build(_ context.Context, settings ClientSettings) (ClientSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.settings = append(f.settings, settings)
	if f.err != nil {
		return ClientSession{}, f.err
	}
	store := newMemoryCredentialStore()
	client := newFakeClient(store)
	if f.prepare != nil {
		f.prepare(client)
	}
	f.clients = append(f.clients, client)
	return ClientSession{Client: client, Store: store}, nil
}

func (f *fakeFactory) last() *fakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.clients) == 0 {
		return nil
	}
	return f.clients[len(f.clients)-1]
}

var (
	_ Client          = (*fakeClient)(nil)
	_ CredentialStore = (*memoryCredentialStore)(nil)
)
