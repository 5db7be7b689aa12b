package livellm

// Role identifies the author of a Message.
type Role string

const (
	User Role = "user"
	// Assistant marks messages produced by a model. The gateway calls this role "model".
	Assistant Role = "model"
	System    Role = "system"
)

// Message is one entry of a conversation, either a [TextMessage] or a [BinaryMessage].
type Message interface {
	MessageRole() Role
	isMessage()
}

// TextMessage is a plain text conversation entry.
type TextMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func (m TextMessage) MessageRole() Role { return m.Role }
func (TextMessage) isMessage()         {}

// BinaryMessage carries non-text input such as an image, an audio clip or a video.
// Content holds the raw bytes; it is base64 encoded on the wire.
type BinaryMessage struct {
	Role     Role   `json:"role"`
	Content  []byte `json:"content"`
	MimeType string `json:"mime_type"`
	Caption  string `json:"caption,omitempty"`
}

func (m BinaryMessage) MessageRole() Role { return m.Role }
func (BinaryMessage) isMessage()         {}

// NewBinaryMessage returns a user BinaryMessage. Only users supply binary content.
func NewBinaryMessage(content []byte, mimeType, caption string) BinaryMessage {
	return BinaryMessage{
		Role:     User,
		Content:  content,
		MimeType: mimeType,
		Caption:  caption,
	}
}

// HasBinary reports whether any message in messages is a BinaryMessage.
func HasBinary(messages []Message) bool {
	for _, m := range messages {
		if _, ok := m.(BinaryMessage); ok {
			return true
		}
	}
	return false
}
