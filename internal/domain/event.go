package domain

// ChatKind is the channel context of an inbound event. Deletion of the
// processing placeholder is only safe in regular group chats; private
// and business contexts keep it to avoid racing a user-visible edit.
type ChatKind string

const (
	ChatPrivate  ChatKind = "private"
	ChatGroup    ChatKind = "group"
	ChatBusiness ChatKind = "business"
)

// AllowsPlaceholderDelete reports whether the processing placeholder
// may be removed in this context.
func (k ChatKind) AllowsPlaceholderDelete() bool {
	return k == ChatGroup
}

// VoiceEvent is one inbound voice message to process.
type VoiceEvent struct {
	ChatID    int64
	ChatTitle string
	ChatKind  ChatKind
	UserID    int64
	UserName  string
	MessageID int
	// Duration is the clip length in seconds, 0 when unknown.
	Duration int
	// FileID references the voice payload on the transport side.
	FileID string
}
