package core

import (
	"context"

	"github.com/google/uuid"
	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

// CredentialRecord is a copy of the persisted authentication record.
type CredentialRecord struct {
	DeviceID uuid.UUID
	Token    *string
}

func (r CredentialRecord) HasToken() bool {
	return r.Token != nil && *r.Token != ""
}

// CredentialStore persists exactly one CredentialRecord. Every operation is a
// short transaction; callers never hold a live handle to the record.
type CredentialStore interface {
	Record(ctx context.Context) (CredentialRecord, error)
	GetToken(ctx context.Context) (*string, error)
	GetOrCreateDeviceID(ctx context.Context) (uuid.UUID, error)
	SetToken(ctx context.Context, token string) error
	EnforceSingleRecord(ctx context.Context) error
	Close() error
}

type Profile struct {
	ID        int64
	FirstName string
	LastName  string
	Phone     string
}

type Chat struct {
	ID          int64
	Title       string
	Type        string
	PhotoID     *int64
	UnreadCount int
}

type Message struct {
	ID       string
	ChatID   int64
	Text     string
	SenderID *int64
	Date     *int64
	Type     string
}

type LoginResult struct {
	Token string
	Me    *Profile
}

// Client is the asynchronous messenger client driven by the Host. Methods
// taking a context block on network I/O and are invoked through the bridge.
type Client interface {
	Connect(ctx context.Context) error
	Close(ctx context.Context) error
	IsConnected() bool
	RequestCode(ctx context.Context, phone string, language string) (string, error)
	LoginWithCode(ctx context.Context, tempToken string, code string) (LoginResult, error)
	Sync(ctx context.Context) (*Profile, error)
	Token() string
	Me() *Profile
	ChatIDs() []int64
	GetChats(ctx context.Context, chatIDs []int64) ([]Chat, error)
	FetchHistory(ctx context.Context, chatID int64, limit int) ([]Message, error)
}

// ClientSettings carries everything a ClientFactory needs to build a client
// for one wrapper.
type ClientSettings struct {
	Phone   string
	WorkDir string
	Config  Config
	Logger  Logger
	Metrics MetricsRecorder
}

// ClientSession is a client together with the credential store it owns.
type ClientSession struct {
	Client Client
	Store  CredentialStore
}

type ClientFactory func(ctx context.Context, settings ClientSettings) (ClientSession, error)
