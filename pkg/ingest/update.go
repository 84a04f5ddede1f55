package ingest

import "time"

// UpdateKind discriminates the Update tagged union.
type UpdateKind int

const (
	// KindMessage is a chat message.
	KindMessage UpdateKind = iota

	// KindCallback is a button press on an inline keyboard.
	KindCallback

	// KindInlineQuery is an inline query typed in any chat.
	KindInlineQuery
)

// String returns the kind name for logs.
func (k UpdateKind) String() string {
	switch k {
	case KindMessage:
		return "message"
	case KindCallback:
		return "callback"
	case KindInlineQuery:
		return "inline_query"
	default:
		return "unknown"
	}
}

// ChatKind classifies the chat a message arrived in.
type ChatKind string

const (
	ChatPrivate    ChatKind = "private"
	ChatGroup      ChatKind = "group"
	ChatSupergroup ChatKind = "supergroup"
	ChatChannel    ChatKind = "channel"
)

// IsGroup reports whether the chat is a multi-user group.
func (c ChatKind) IsGroup() bool {
	return c == ChatGroup || c == ChatSupergroup
}

// UserInfo identifies the sender of an update. Every context carries one;
// there is no update without an originating user.
type UserInfo struct {
	ID           int64
	Username     string
	FirstName    string
	LastName     string
	LanguageCode string
	IsPremium    bool
	IsBot        bool
}

// DisplayName returns the best human-readable name available.
func (u UserInfo) DisplayName() string {
	switch {
	case u.Username != "":
		return u.Username
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return "unknown"
	}
}

// MessageContext carries the fields a chat message guarantees.
type MessageContext struct {
	ChatID    int64
	ChatKind  ChatKind
	ChatTitle string
	MessageID int64
	Text      string
	From      UserInfo
	SentAt    time.Time
}

// CallbackContext carries the fields a callback press guarantees. ChatID is
// zero for callbacks from inline-mode messages.
type CallbackContext struct {
	CallbackID string
	ChatID     int64
	MessageID  int64
	Data       string
	From       UserInfo
}

// InlineQueryContext carries the fields an inline query guarantees. Inline
// queries have no chat.
type InlineQueryContext struct {
	QueryID string
	Query   string
	From    UserInfo
}

// Update is a tagged union over the three context types. Exactly one arm is
// set, matching Kind. Construct with one of the New*Update functions.
type Update struct {
	kind     UpdateKind
	message  *MessageContext
	callback *CallbackContext
	inline   *InlineQueryContext
}

// NewMessageUpdate wraps a message context.
func NewMessageUpdate(m MessageContext) Update {
	return Update{kind: KindMessage, message: &m}
}

// NewCallbackUpdate wraps a callback context.
func NewCallbackUpdate(c CallbackContext) Update {
	return Update{kind: KindCallback, callback: &c}
}

// NewInlineQueryUpdate wraps an inline query context.
func NewInlineQueryUpdate(q InlineQueryContext) Update {
	return Update{kind: KindInlineQuery, inline: &q}
}

// Kind returns the update's discriminant.
func (u Update) Kind() UpdateKind {
	return u.kind
}

// Message returns the message context when Kind is KindMessage.
func (u Update) Message() (MessageContext, bool) {
	if u.message == nil {
		return MessageContext{}, false
	}
	return *u.message, true
}

// Callback returns the callback context when Kind is KindCallback.
func (u Update) Callback() (CallbackContext, bool) {
	if u.callback == nil {
		return CallbackContext{}, false
	}
	return *u.callback, true
}

// InlineQuery returns the inline query context when Kind is KindInlineQuery.
func (u Update) InlineQuery() (InlineQueryContext, bool) {
	if u.inline == nil {
		return InlineQueryContext{}, false
	}
	return *u.inline, true
}

// From returns the originating user. Resolved once here so downstream code
// never inspects per-kind fields for identity.
func (u Update) From() (UserInfo, bool) {
	switch u.kind {
	case KindMessage:
		if u.message != nil {
			return u.message.From, true
		}
	case KindCallback:
		if u.callback != nil {
			return u.callback.From, true
		}
	case KindInlineQuery:
		if u.inline != nil {
			return u.inline.From, true
		}
	}
	return UserInfo{}, false
}

// ChatID returns the chat the update belongs to. Inline queries and
// chat-less callbacks report false.
func (u Update) ChatID() (int64, bool) {
	switch u.kind {
	case KindMessage:
		if u.message != nil {
			return u.message.ChatID, true
		}
	case KindCallback:
		if u.callback != nil && u.callback.ChatID != 0 {
			return u.callback.ChatID, true
		}
	}
	return 0, false
}
