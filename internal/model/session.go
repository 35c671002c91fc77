package model

import "time"

// Language 是会话当前的回复语言，切换后持续生效直到再次切换。
type Language string

const (
	LanguageFrench  Language = "fr"
	LanguageEnglish Language = "en"
	LanguageArabic  Language = "ar"
)

// DefaultLanguage 是未明确要求时使用的主语言。
const DefaultLanguage = LanguageFrench

// DisplayName 返回在提示词中使用的语言名称。
func (l Language) DisplayName() string {
	switch l {
	case LanguageEnglish:
		return "ANGLAIS"
	case LanguageArabic:
		return "ARABE"
	default:
		return "FRANÇAIS"
	}
}

// SessionState 是会话的轮次状态机。
type SessionState string

const (
	StateIdle          SessionState = "idle"
	StateAwaitingModel SessionState = "awaiting_model"
)

// Session 是一个独立隔离的咨询会话。
type Session struct {
	ID           string
	Conversation Conversation
	Language     Language
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewSession 创建一个带问候语的新会话。
func NewSession(id, greeting string, now time.Time) *Session {
	return &Session{
		ID:           id,
		Conversation: NewConversation(greeting, now),
		Language:     DefaultLanguage,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Clone 返回一个与原会话不共享底层切片的副本。
func (s *Session) Clone() *Session {
	cp := *s
	cp.Conversation = RestoreConversation(s.Conversation.Snapshot())
	return &cp
}

// SessionSnapshot 是展示层看到的会话只读视图。
type SessionSnapshot struct {
	SessionID string       `json:"sessionId"`
	Turns     []Turn       `json:"turns"`
	Language  Language     `json:"language"`
	State     SessionState `json:"state"`
}
