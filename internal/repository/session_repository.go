// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"enstp-advisor-go/internal/model"

	"github.com/google/uuid"
)

var (
	// ErrSessionNotFound 表示会话不存在或已过期。
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExists 表示创建时会话 ID 冲突。
	ErrSessionExists = errors.New("session already exists")
	// ErrTurnLockLost 表示轮次锁已不再属于调用方，写入被拒绝。
	ErrTurnLockLost = errors.New("turn lock no longer held")
)

// SessionRepository 定义了会话的存取操作，以及单会话单请求的轮次锁。
//
// 轮次锁以 owner 令牌标识持有者：只有持有者能释放锁或通过 SaveTurn 写入，
// 锁过期后被他人取得时，旧持有者的写入返回 ErrTurnLockLost。
type SessionRepository interface {
	Create(ctx context.Context, session *model.Session) error
	Get(ctx context.Context, id string) (*model.Session, error)
	// AcquireTurn 尝试把会话从 idle 切换到 awaiting_model，已在处理中时返回 ok=false。
	AcquireTurn(ctx context.Context, id string) (owner string, ok bool, err error)
	// SaveTurn 仅在 owner 仍持有轮次锁时保存会话。
	SaveTurn(ctx context.Context, session *model.Session, owner string) error
	// ReleaseTurn 把会话切换回 idle；锁已属于他人时不做任何事。
	ReleaseTurn(ctx context.Context, id, owner string) error
	State(ctx context.Context, id string) (model.SessionState, error)
}

func newOwner() string { return uuid.NewString() }

type memoryEntry struct {
	session *model.Session
	touched time.Time
}

// memorySessionRepository 是进程内实现，只适合单实例部署与本地开发。
type memorySessionRepository struct {
	mu       sync.RWMutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]*memoryEntry
	inFlight map[string]string
}

// NewMemorySessionRepository 创建一个进程内的 SessionRepository。
// ttl 是会话空闲过期时间，每次读写都会刷新；ttl <= 0 表示永不过期。
func NewMemorySessionRepository(ttl time.Duration) SessionRepository {
	return newMemorySessionRepository(ttl, time.Now)
}

func newMemorySessionRepository(ttl time.Duration, now func() time.Time) *memorySessionRepository {
	return &memorySessionRepository{
		ttl:      ttl,
		now:      now,
		sessions: make(map[string]*memoryEntry),
		inFlight: make(map[string]string),
	}
}

func (r *memorySessionRepository) expired(e *memoryEntry, now time.Time) bool {
	return r.ttl > 0 && now.Sub(e.touched) >= r.ttl
}

// lookup 返回未过期的会话条目，过期条目当作不存在。进行中的会话不会过期。
// 调用方需持有写锁。
func (r *memorySessionRepository) lookup(id string) (*memoryEntry, bool) {
	e, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	now := r.now()
	if _, busy := r.inFlight[id]; !busy && r.expired(e, now) {
		delete(r.sessions, id)
		return nil, false
	}
	e.touched = now
	return e, true
}

// sweep 清理所有已过期且没有进行中轮次的会话。
func (r *memorySessionRepository) sweep() {
	if r.ttl <= 0 {
		return
	}
	now := r.now()
	for id, e := range r.sessions {
		if _, busy := r.inFlight[id]; busy {
			continue
		}
		if r.expired(e, now) {
			delete(r.sessions, id)
		}
	}
}

func (r *memorySessionRepository) Create(_ context.Context, session *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sweep()
	if _, exists := r.lookup(session.ID); exists {
		return ErrSessionExists
	}
	r.sessions[session.ID] = &memoryEntry{session: session.Clone(), touched: r.now()}
	return nil
}

func (r *memorySessionRepository) Get(_ context.Context, id string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.lookup(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e.session.Clone(), nil
}

func (r *memorySessionRepository) AcquireTurn(_ context.Context, id string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.lookup(id); !ok {
		return "", false, ErrSessionNotFound
	}
	if _, busy := r.inFlight[id]; busy {
		return "", false, nil
	}
	owner := newOwner()
	r.inFlight[id] = owner
	return owner, true, nil
}

func (r *memorySessionRepository) SaveTurn(_ context.Context, session *model.Session, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.inFlight[session.ID] != owner {
		return ErrTurnLockLost
	}
	e, ok := r.lookup(session.ID)
	if !ok {
		return ErrSessionNotFound
	}
	e.session = session.Clone()
	return nil
}

func (r *memorySessionRepository) ReleaseTurn(_ context.Context, id, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.inFlight[id] == owner {
		delete(r.inFlight, id)
	}
	return nil
}

func (r *memorySessionRepository) State(_ context.Context, id string) (model.SessionState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.lookup(id); !ok {
		return "", ErrSessionNotFound
	}
	if _, busy := r.inFlight[id]; busy {
		return model.StateAwaitingModel, nil
	}
	return model.StateIdle, nil
}
