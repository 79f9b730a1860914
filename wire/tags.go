package wire

type AuthType string

const (
	AuthStart    AuthType = "START_AUTH"
	AuthCheck    AuthType = "CHECK_CODE"
	AuthRegister AuthType = "REGISTER"
)

func (t AuthType) Label() string { return string(t) }

type AttachType string

const (
	AttachPhoto   AttachType = "PHOTO"
	AttachVideo   AttachType = "VIDEO"
	AttachFile    AttachType = "FILE"
	AttachSticker AttachType = "STICKER"
	AttachAudio   AttachType = "AUDIO"
	AttachControl AttachType = "CONTROL"
)

func (t AttachType) Label() string { return string(t) }

var (
	_ Tag = AuthStart
	_ Tag = AttachPhoto
)
