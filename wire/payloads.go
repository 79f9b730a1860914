package wire

const (
	DefaultDeviceType      = "WEB"
	DefaultLocale          = "ru"
	DefaultDeviceLocale    = "ru"
	DefaultOSVersion       = "Linux"
	DefaultDeviceName      = "Chrome"
	DefaultHeaderUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/139.0.0.0 Safari/537.36"
	DefaultAppVersion      = "25.12.13"
	DefaultScreen          = "1080x1920 1.0x"
	DefaultTimezone        = "Europe/Moscow"
	DefaultHistoryBackward = 200
	DefaultChatsCount      = 40
)

type UserAgentPayload struct {
	DeviceType      string
	Locale          string
	DeviceLocale    string
	OSVersion       string
	DeviceName      string
	HeaderUserAgent string
	AppVersion      string
	Screen          string
	Timezone        string
	ClientSessionID int
	BuildNumber     int
}

// DefaultUserAgent returns the web client identity sent at handshake.
func DefaultUserAgent() UserAgentPayload {
	return UserAgentPayload{
		DeviceType:      DefaultDeviceType,
		Locale:          DefaultLocale,
		DeviceLocale:    DefaultDeviceLocale,
		OSVersion:       DefaultOSVersion,
		DeviceName:      DefaultDeviceName,
		HeaderUserAgent: DefaultHeaderUserAgent,
		AppVersion:      DefaultAppVersion,
		Screen:          DefaultScreen,
		Timezone:        DefaultTimezone,
		ClientSessionID: 14,
		BuildNumber:     0x97CB,
	}
}

func (p UserAgentPayload) WireFields() []Field {
	return []Field{
		{Name: "device_type", Value: p.DeviceType},
		{Name: "locale", Value: p.Locale},
		{Name: "device_locale", Value: p.DeviceLocale},
		{Name: "os_version", Value: p.OSVersion},
		{Name: "device_name", Value: p.DeviceName},
		{Name: "header_user_agent", Value: p.HeaderUserAgent},
		{Name: "app_version", Value: p.AppVersion},
		{Name: "screen", Value: p.Screen},
		{Name: "timezone", Value: p.Timezone},
		{Name: "client_session_id", Value: p.ClientSessionID},
		{Name: "build_number", Value: p.BuildNumber},
	}
}

type HandshakePayload struct {
	DeviceID  string
	UserAgent UserAgentPayload
}

func (p HandshakePayload) WireFields() []Field {
	return []Field{
		{Name: "device_id", Value: p.DeviceID},
		{Name: "user_agent", Value: p.UserAgent},
	}
}

type RequestCodePayload struct {
	Phone    string
	Type     AuthType
	Language string
}

func (p RequestCodePayload) WireFields() []Field {
	kind := p.Type
	if kind == "" {
		kind = AuthStart
	}
	return []Field{
		{Name: "phone", Value: p.Phone},
		{Name: "type", Value: kind},
		{Name: "language", Value: p.Language},
	}
}

type SendCodePayload struct {
	Token         string
	VerifyCode    string
	AuthTokenType AuthType
}

func (p SendCodePayload) WireFields() []Field {
	kind := p.AuthTokenType
	if kind == "" {
		kind = AuthCheck
	}
	return []Field{
		{Name: "token", Value: p.Token},
		{Name: "verify_code", Value: p.VerifyCode},
		{Name: "auth_token_type", Value: kind},
	}
}

type SyncPayload struct {
	Interactive  bool
	Token        string
	ChatsSync    int64
	ContactsSync int64
	PresenceSync int64
	DraftsSync   int64
	ChatsCount   int
	UserAgent    UserAgentPayload
}

func (p SyncPayload) WireFields() []Field {
	count := p.ChatsCount
	if count == 0 {
		count = DefaultChatsCount
	}
	return []Field{
		{Name: "interactive", Value: p.Interactive},
		{Name: "token", Value: p.Token},
		{Name: "chats_sync", Value: p.ChatsSync},
		{Name: "contacts_sync", Value: p.ContactsSync},
		{Name: "presence_sync", Value: p.PresenceSync},
		{Name: "drafts_sync", Value: p.DraftsSync},
		{Name: "chats_count", Value: count},
		{Name: "user_agent", Value: p.UserAgent},
	}
}

type GetChatInfoPayload struct {
	ChatIDs []int64
}

func (p GetChatInfoPayload) WireFields() []Field {
	ids := p.ChatIDs
	if ids == nil {
		ids = []int64{}
	}
	return []Field{{Name: "chat_ids", Value: ids}}
}

// FetchHistoryPayload requests messages around FromTime. The start offset is
// emitted as "from".
type FetchHistoryPayload struct {
	ChatID      int64
	FromTime    int64
	Forward     int
	Backward    int
	GetMessages bool
}

func (p FetchHistoryPayload) WireFields() []Field {
	return []Field{
		{Name: "chat_id", Value: p.ChatID},
		{Name: "from_time", Value: p.FromTime, WireName: "from"},
		{Name: "forward", Value: p.Forward},
		{Name: "backward", Value: p.Backward},
		{Name: "get_messages", Value: p.GetMessages},
	}
}

type MessageElement struct {
	Type   string
	From   int
	Length int
}

func (p MessageElement) WireFields() []Field {
	return []Field{
		{Name: "type", Value: p.Type},
		{Name: "from_", Value: p.From, WireName: "from"},
		{Name: "length", Value: p.Length},
	}
}

type ReplyLink struct {
	Type      string
	MessageID string
}

func (p ReplyLink) WireFields() []Field {
	kind := p.Type
	if kind == "" {
		kind = "REPLY"
	}
	return []Field{
		{Name: "type", Value: kind},
		{Name: "message_id", Value: p.MessageID},
	}
}

type AttachPhotoPayload struct {
	PhotoToken string
}

func (p AttachPhotoPayload) WireFields() []Field {
	return []Field{
		{Name: "_type", Value: AttachPhoto, WireName: "type"},
		{Name: "photo_token", Value: p.PhotoToken},
	}
}

type AttachFilePayload struct {
	FileID int64
}

func (p AttachFilePayload) WireFields() []Field {
	return []Field{
		{Name: "_type", Value: AttachFile, WireName: "type"},
		{Name: "file_id", Value: p.FileID},
	}
}

type SendMessagePayloadMessage struct {
	Text     string
	CID      int64
	Elements []MessageElement
	Attaches []Request
	Link     *ReplyLink
}

func (p SendMessagePayloadMessage) WireFields() []Field {
	elements := p.Elements
	if elements == nil {
		elements = []MessageElement{}
	}
	attaches := p.Attaches
	if attaches == nil {
		attaches = []Request{}
	}
	return []Field{
		{Name: "text", Value: p.Text},
		{Name: "cid", Value: p.CID},
		{Name: "elements", Value: elements},
		{Name: "attaches", Value: attaches},
		{Name: "link", Value: p.Link},
	}
}

type SendMessagePayload struct {
	ChatID  int64
	Message SendMessagePayloadMessage
	Notify  bool
}

func (p SendMessagePayload) WireFields() []Field {
	return []Field{
		{Name: "chat_id", Value: p.ChatID},
		{Name: "message", Value: p.Message},
		{Name: "notify", Value: p.Notify},
	}
}

var (
	_ Request = UserAgentPayload{}
	_ Request = HandshakePayload{}
	_ Request = RequestCodePayload{}
	_ Request = SendCodePayload{}
	_ Request = SyncPayload{}
	_ Request = GetChatInfoPayload{}
	_ Request = FetchHistoryPayload{}
	_ Request = MessageElement{}
	_ Request = ReplyLink{}
	_ Request = AttachPhotoPayload{}
	_ Request = AttachFilePayload{}
	_ Request = SendMessagePayloadMessage{}
	_ Request = SendMessagePayload{}
)
