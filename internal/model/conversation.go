// Package model 包含了应用的数据模型定义。
package model

import "time"

// Speaker 标识一条消息的发言方。
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// Turn 代表对话中的单条消息，创建后不可修改。
type Turn struct {
	Role      Speaker   `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation 是单个会话内按时间顺序排列、只追加的消息序列。
// 初始化或清空之后，它总是以一条助手问候语开始。
type Conversation struct {
	turns []Turn
}

// NewConversation 创建一个只包含问候语的对话。
func NewConversation(greeting string, now time.Time) Conversation {
	var c Conversation
	c.Reset(greeting, now)
	return c
}

// RestoreConversation 从已保存的消息恢复对话，用于仓储层反序列化。
func RestoreConversation(turns []Turn) Conversation {
	return Conversation{turns: append([]Turn(nil), turns...)}
}

// Append 在末尾追加一条消息。
func (c *Conversation) Append(turn Turn) {
	c.turns = append(c.turns, turn)
}

// Reset 丢弃全部消息，并重新放入唯一一条问候语。
func (c *Conversation) Reset(greeting string, now time.Time) {
	c.turns = []Turn{{Role: SpeakerAssistant, Content: greeting, Timestamp: now}}
}

// Snapshot 返回完整消息序列的副本，调用方修改副本不会影响对话本身。
func (c Conversation) Snapshot() []Turn {
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Len 返回消息条数。
func (c Conversation) Len() int { return len(c.turns) }

// Last 返回最后一条消息。
func (c Conversation) Last() (Turn, bool) {
	if len(c.turns) == 0 {
		return Turn{}, false
	}
	return c.turns[len(c.turns)-1], true
}
