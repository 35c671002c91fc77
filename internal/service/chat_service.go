// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"enstp-advisor-go/internal/model"
	"enstp-advisor-go/internal/repository"
	"enstp-advisor-go/pkg/log"

	"github.com/google/uuid"
)

var (
	// ErrEmptyInput 表示学生提交了空白内容。
	ErrEmptyInput = errors.New("empty input")
	// ErrTurnInFlight 表示该会话已有一轮正在等待模型回复。
	ErrTurnInFlight = errors.New("a turn is already in flight for this session")
)

// TurnResult 是一轮对话的结果。
type TurnResult struct {
	Reply    model.Turn            `json:"reply"`
	Failure  FailureKind           `json:"failure"`
	Snapshot model.SessionSnapshot `json:"snapshot"`
}

// ChatService 定义了咨询对话的操作。
type ChatService interface {
	StartSession(ctx context.Context) (model.SessionSnapshot, error)
	SubmitTurn(ctx context.Context, sessionID, text string) (*TurnResult, error)
	ClearConversation(ctx context.Context, sessionID string) (model.SessionSnapshot, error)
	Snapshot(ctx context.Context, sessionID string) (model.SessionSnapshot, error)
}

type chatService struct {
	sessions  repository.SessionRepository
	assembler *PromptAssembler
	gateway   *ModelGateway
	greeting  string
	now       func() time.Time
	newID     func() string
}

// NewChatService 创建一个新的 ChatService 实例。
func NewChatService(sessions repository.SessionRepository, assembler *PromptAssembler, gateway *ModelGateway, greeting string) ChatService {
	return &chatService{
		sessions:  sessions,
		assembler: assembler,
		gateway:   gateway,
		greeting:  greeting,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// StartSession 创建一个只包含问候语的新会话。
func (s *chatService) StartSession(ctx context.Context) (model.SessionSnapshot, error) {
	sess := model.NewSession(s.newID(), s.greeting, s.now())
	if err := s.sessions.Create(ctx, sess); err != nil {
		return model.SessionSnapshot{}, fmt.Errorf("failed to create session: %w", err)
	}
	log.Infow("Session started", "session_id", sess.ID)
	return snapshotOf(sess, model.StateIdle), nil
}

// SubmitTurn 处理学生的一次输入，并且总是追加恰好一条助手回复。
// 模型调用与调用方的取消解耦，一旦发出就会执行到底。
func (s *chatService) SubmitTurn(ctx context.Context, sessionID, text string) (*TurnResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyInput
	}
	logger := log.With("session_id", sessionID)

	owner, acquired, err := s.sessions.AcquireTurn(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, ErrTurnInFlight
	}
	detached := context.WithoutCancel(ctx)
	defer func() {
		if err := s.sessions.ReleaseTurn(detached, sessionID, owner); err != nil {
			logger.Errorw("Failed to release turn", "error", err)
		}
	}()

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	// 上一轮的助手回复没能写入时，先补一条失败提示，保持一问一答交替
	if last, ok := sess.Conversation.Last(); ok && last.Role == model.SpeakerUser {
		logger.Warnw("Previous turn has no reply, closing it as interrupted")
		s.appendTurn(sess, model.SpeakerAssistant, InterruptedText)
	}
	prior := sess.Conversation.Snapshot()

	if lang, ok := DetectLanguageSwitch(text); ok && lang != sess.Language {
		logger.Infow("Language switched", "from", sess.Language, "to", lang)
		sess.Language = lang
	}

	// 先保存学生的输入，等待模型期间展示层就能看到它
	s.appendTurn(sess, model.SpeakerUser, text)
	if err := s.sessions.SaveTurn(ctx, sess, owner); err != nil {
		return nil, fmt.Errorf("failed to save user turn: %w", err)
	}

	var reply Reply
	if IsAttributionQuery(text) {
		reply = Reply{Text: AttributionAnswer, Failure: FailureNone}
	} else {
		req := s.assembler.Assemble(PromptInput{Latest: text, Prior: prior, Language: sess.Language})
		reply = s.gateway.Invoke(detached, req)
	}

	answer := s.appendTurn(sess, model.SpeakerAssistant, reply.Text)
	if err := s.sessions.SaveTurn(detached, sess, owner); err != nil {
		// 学生的输入已经落库，下一轮会把它补成 InterruptedText
		logger.Errorw("Failed to save assistant turn", "failure", reply.Failure, "error", err)
		return nil, fmt.Errorf("failed to save assistant turn: %w", err)
	}
	logger.Infow("Turn completed", "failure", reply.Failure, "turns", sess.Conversation.Len())

	return &TurnResult{
		Reply:    answer,
		Failure:  reply.Failure,
		Snapshot: snapshotOf(sess, model.StateIdle),
	}, nil
}

// ClearConversation 把对话重置为问候语，语言恢复为法语。等待模型期间不允许清空。
func (s *chatService) ClearConversation(ctx context.Context, sessionID string) (model.SessionSnapshot, error) {
	logger := log.With("session_id", sessionID)

	owner, acquired, err := s.sessions.AcquireTurn(ctx, sessionID)
	if err != nil {
		return model.SessionSnapshot{}, err
	}
	if !acquired {
		return model.SessionSnapshot{}, ErrTurnInFlight
	}
	defer func() {
		if err := s.sessions.ReleaseTurn(context.WithoutCancel(ctx), sessionID, owner); err != nil {
			logger.Errorw("Failed to release turn", "error", err)
		}
	}()

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return model.SessionSnapshot{}, err
	}
	now := s.now()
	sess.Conversation.Reset(s.greeting, now)
	sess.Language = model.DefaultLanguage
	sess.UpdatedAt = now
	if err := s.sessions.SaveTurn(ctx, sess, owner); err != nil {
		return model.SessionSnapshot{}, fmt.Errorf("failed to save cleared session: %w", err)
	}
	logger.Infow("Conversation cleared")
	return snapshotOf(sess, model.StateIdle), nil
}

// Snapshot 返回会话的对话、语言与当前状态。
func (s *chatService) Snapshot(ctx context.Context, sessionID string) (model.SessionSnapshot, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return model.SessionSnapshot{}, err
	}
	state, err := s.sessions.State(ctx, sessionID)
	if err != nil {
		return model.SessionSnapshot{}, err
	}
	return snapshotOf(sess, state), nil
}

func (s *chatService) appendTurn(sess *model.Session, role model.Speaker, content string) model.Turn {
	now := s.now()
	turn := model.Turn{Role: role, Content: content, Timestamp: now}
	sess.Conversation.Append(turn)
	sess.UpdatedAt = now
	return turn
}

func snapshotOf(sess *model.Session, state model.SessionState) model.SessionSnapshot {
	return model.SessionSnapshot{
		SessionID: sess.ID,
		Turns:     sess.Conversation.Snapshot(),
		Language:  sess.Language,
		State:     state,
	}
}
