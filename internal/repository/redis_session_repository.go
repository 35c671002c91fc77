package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"enstp-advisor-go/internal/model"
	"enstp-advisor-go/pkg/log"

	"github.com/go-redis/redis/v8"
)

var (
	// KEYS[1]=锁 ARGV[1]=owner
	releaseTurnScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

	// KEYS[1]=锁 ARGV[1]=owner ARGV[2]=毫秒
	refreshTurnScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

	// KEYS[1]=锁 KEYS[2]=会话 ARGV[1]=owner ARGV[2]=数据 ARGV[3]=毫秒
	// -1: 锁不属于 owner；0: 会话不存在；1: 已保存
	saveTurnScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) ~= ARGV[1] then
	return -1
end
if redis.call("EXISTS", KEYS[2]) == 0 then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[3])
else
	redis.call("SET", KEYS[2], ARGV[2])
end
return 1
`)
)

// sessionRecord 是会话在 Redis 中的 JSON 结构。
type sessionRecord struct {
	ID        string         `json:"id"`
	Turns     []model.Turn   `json:"turns"`
	Language  model.Language `json:"language"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

type redisSessionRepository struct {
	redisClient *redis.Client
	ttl         time.Duration
	lockTTL     time.Duration

	mu     sync.Mutex
	leases map[string]context.CancelFunc
}

// NewRedisSessionRepository 创建一个基于 Redis 的 SessionRepository。
// ttl 是会话空闲过期时间，每次保存都会刷新。
// lockTTL 是轮次锁的过期时间：持有期间每 lockTTL/3 续期一次，只有进程崩溃时锁才会过期。
func NewRedisSessionRepository(redisClient *redis.Client, ttl, lockTTL time.Duration) SessionRepository {
	return &redisSessionRepository{
		redisClient: redisClient,
		ttl:         ttl,
		lockTTL:     lockTTL,
		leases:      make(map[string]context.CancelFunc),
	}
}

func sessionKey(id string) string  { return fmt.Sprintf("session:%s", id) }
func inFlightKey(id string) string { return fmt.Sprintf("session:%s:inflight", id) }

func (r *redisSessionRepository) Create(ctx context.Context, session *model.Session) error {
	data, err := encodeSession(session)
	if err != nil {
		return err
	}
	ok, err := r.redisClient.SetNX(ctx, sessionKey(session.ID), data, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	if !ok {
		return ErrSessionExists
	}
	return nil
}

func (r *redisSessionRepository) Get(ctx context.Context, id string) (*model.Session, error) {
	data, err := r.redisClient.Get(ctx, sessionKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &model.Session{
		ID:           rec.ID,
		Conversation: model.RestoreConversation(rec.Turns),
		Language:     rec.Language,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}, nil
}

func (r *redisSessionRepository) AcquireTurn(ctx context.Context, id string) (string, bool, error) {
	exists, err := r.redisClient.Exists(ctx, sessionKey(id)).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to check session: %w", err)
	}
	if exists == 0 {
		return "", false, ErrSessionNotFound
	}
	owner := newOwner()
	ok, err := r.redisClient.SetNX(ctx, inFlightKey(id), owner, r.lockTTL).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire turn lock: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	r.keepAlive(id, owner)
	return owner, true, nil
}

// keepAlive 在锁被释放前定期续期，模型调用再慢也不会让锁自然过期。
func (r *redisSessionRepository) keepAlive(id, owner string) {
	if r.lockTTL <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.mu.Lock()
	r.leases[owner] = cancel
	r.mu.Unlock()

	go func() {
		ticker := time.NewTicker(r.lockTTL / 3)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := refreshTurnScript.Run(ctx, r.redisClient, []string{inFlightKey(id)}, owner, r.lockTTL.Milliseconds()).Int()
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					log.Warnw("Failed to refresh turn lock", "session_id", id, "error", err)
					continue
				}
				if n == 0 {
					log.Warnw("Turn lock lost before release", "session_id", id)
					return
				}
			}
		}
	}()
}

func (r *redisSessionRepository) stopKeepAlive(owner string) {
	r.mu.Lock()
	cancel, ok := r.leases[owner]
	delete(r.leases, owner)
	r.mu.Unlock()
	if ok {
		cancel()
	}
}

func (r *redisSessionRepository) SaveTurn(ctx context.Context, session *model.Session, owner string) error {
	data, err := encodeSession(session)
	if err != nil {
		return err
	}
	keys := []string{inFlightKey(session.ID), sessionKey(session.ID)}
	n, err := saveTurnScript.Run(ctx, r.redisClient, keys, owner, data, r.ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	switch n {
	case -1:
		return ErrTurnLockLost
	case 0:
		return ErrSessionNotFound
	}
	return nil
}

func (r *redisSessionRepository) ReleaseTurn(ctx context.Context, id, owner string) error {
	r.stopKeepAlive(owner)
	if err := releaseTurnScript.Run(ctx, r.redisClient, []string{inFlightKey(id)}, owner).Err(); err != nil {
		return fmt.Errorf("failed to release turn lock: %w", err)
	}
	return nil
}

func (r *redisSessionRepository) State(ctx context.Context, id string) (model.SessionState, error) {
	n, err := r.redisClient.Exists(ctx, sessionKey(id), inFlightKey(id)).Result()
	if err != nil {
		return "", fmt.Errorf("failed to read session state: %w", err)
	}
	switch n {
	case 0:
		return "", ErrSessionNotFound
	case 2:
		return model.StateAwaitingModel, nil
	default:
		exists, err := r.redisClient.Exists(ctx, sessionKey(id)).Result()
		if err != nil {
			return "", fmt.Errorf("failed to read session state: %w", err)
		}
		if exists == 0 {
			return "", ErrSessionNotFound
		}
		return model.StateIdle, nil
	}
}

func encodeSession(s *model.Session) ([]byte, error) {
	data, err := json.Marshal(sessionRecord{
		ID:        s.ID,
		Turns:     s.Conversation.Snapshot(),
		Language:  s.Language,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}
	return data, nil
}
