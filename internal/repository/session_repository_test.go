package repository

import (
	"context"
	"testing"
	"time"

	"enstp-advisor-go/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const sessionTTL = time.Hour

// SessionRepositorySuite 对两种实现运行同一组行为测试。
// advance 推进该实现所用的时钟。
type SessionRepositorySuite struct {
	suite.Suite
	newRepo func() SessionRepository
	advance func(d time.Duration)
	repo    SessionRepository
	ctx     context.Context
}

func (s *SessionRepositorySuite) SetupTest() {
	s.repo = s.newRepo()
	s.ctx = context.Background()
}

func (s *SessionRepositorySuite) newSession(id string) *model.Session {
	return model.NewSession(id, "Bonjour !", time.Now().UTC().Truncate(time.Millisecond))
}

// save 在持有轮次锁的情况下写入会话。
func (s *SessionRepositorySuite) save(sess *model.Session) {
	owner, ok, err := s.repo.AcquireTurn(s.ctx, sess.ID)
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Require().NoError(s.repo.SaveTurn(s.ctx, sess, owner))
	s.Require().NoError(s.repo.ReleaseTurn(s.ctx, sess.ID, owner))
}

func (s *SessionRepositorySuite) TestCreateAndGet() {
	sess := s.newSession("a")
	s.Require().NoError(s.repo.Create(s.ctx, sess))

	got, err := s.repo.Get(s.ctx, "a")
	s.Require().NoError(err)
	s.Equal(sess.ID, got.ID)
	s.Equal(model.LanguageFrench, got.Language)
	s.Equal(sess.Conversation.Snapshot(), got.Conversation.Snapshot())

	s.ErrorIs(s.repo.Create(s.ctx, sess), ErrSessionExists)
}

func (s *SessionRepositorySuite) TestGetMissing() {
	_, err := s.repo.Get(s.ctx, "missing")
	s.ErrorIs(err, ErrSessionNotFound)
	_, _, err = s.repo.AcquireTurn(s.ctx, "missing")
	s.ErrorIs(err, ErrSessionNotFound)
}

func (s *SessionRepositorySuite) TestSaveRoundTrip() {
	sess := s.newSession("b")
	s.Require().NoError(s.repo.Create(s.ctx, sess))

	sess.Conversation.Append(model.Turn{Role: model.SpeakerUser, Content: "J'aime les maths", Timestamp: sess.CreatedAt})
	sess.Language = model.LanguageEnglish
	s.save(sess)

	got, err := s.repo.Get(s.ctx, "b")
	s.Require().NoError(err)
	s.Equal(2, got.Conversation.Len())
	s.Equal(model.LanguageEnglish, got.Language)
}

func (s *SessionRepositorySuite) TestSessionsAreIsolated() {
	a := s.newSession("iso-a")
	b := s.newSession("iso-b")
	s.Require().NoError(s.repo.Create(s.ctx, a))
	s.Require().NoError(s.repo.Create(s.ctx, b))

	a.Conversation.Append(model.Turn{Role: model.SpeakerUser, Content: "seulement A"})
	s.save(a)

	gotB, err := s.repo.Get(s.ctx, "iso-b")
	s.Require().NoError(err)
	s.Equal(1, gotB.Conversation.Len())
}

func (s *SessionRepositorySuite) TestTurnLock() {
	s.Require().NoError(s.repo.Create(s.ctx, s.newSession("c")))

	state, err := s.repo.State(s.ctx, "c")
	s.Require().NoError(err)
	s.Equal(model.StateIdle, state)

	owner, ok, err := s.repo.AcquireTurn(s.ctx, "c")
	s.Require().NoError(err)
	s.True(ok)
	s.NotEmpty(owner)

	_, ok, err = s.repo.AcquireTurn(s.ctx, "c")
	s.Require().NoError(err)
	s.False(ok, "second acquire must be rejected while in flight")

	state, err = s.repo.State(s.ctx, "c")
	s.Require().NoError(err)
	s.Equal(model.StateAwaitingModel, state)

	s.Require().NoError(s.repo.ReleaseTurn(s.ctx, "c", owner))
	next, ok, err := s.repo.AcquireTurn(s.ctx, "c")
	s.Require().NoError(err)
	s.True(ok)
	s.NotEqual(owner, next)

	_, _, err = s.repo.AcquireTurn(s.ctx, "nope")
	s.ErrorIs(err, ErrSessionNotFound)
}

func (s *SessionRepositorySuite) TestOnlyOwnerCanSaveTurnOrRelease() {
	sess := s.newSession("owned")
	s.Require().NoError(s.repo.Create(s.ctx, sess))
	owner, ok, err := s.repo.AcquireTurn(s.ctx, "owned")
	s.Require().NoError(err)
	s.Require().True(ok)

	sess.Conversation.Append(model.Turn{Role: model.SpeakerUser, Content: "intrus"})
	s.ErrorIs(s.repo.SaveTurn(s.ctx, sess, "someone-else"), ErrTurnLockLost)
	s.Require().NoError(s.repo.ReleaseTurn(s.ctx, "owned", "someone-else"))

	state, err := s.repo.State(s.ctx, "owned")
	s.Require().NoError(err)
	s.Equal(model.StateAwaitingModel, state, "a foreign release must not drop the lock")

	s.Require().NoError(s.repo.SaveTurn(s.ctx, sess, owner))
	s.Require().NoError(s.repo.ReleaseTurn(s.ctx, "owned", owner))

	got, err := s.repo.Get(s.ctx, "owned")
	s.Require().NoError(err)
	s.Equal(2, got.Conversation.Len())

	s.ErrorIs(s.repo.SaveTurn(s.ctx, got, owner), ErrTurnLockLost, "released lock must not accept writes")
}

func (s *SessionRepositorySuite) TestIdleSessionExpires() {
	s.Require().NoError(s.repo.Create(s.ctx, s.newSession("idle")))

	s.advance(sessionTTL + time.Second)

	_, err := s.repo.Get(s.ctx, "idle")
	s.ErrorIs(err, ErrSessionNotFound)
	_, _, err = s.repo.AcquireTurn(s.ctx, "idle")
	s.ErrorIs(err, ErrSessionNotFound)
	_, err = s.repo.State(s.ctx, "idle")
	s.ErrorIs(err, ErrSessionNotFound)
}

func (s *SessionRepositorySuite) TestSaveRefreshesExpiry() {
	sess := s.newSession("active")
	s.Require().NoError(s.repo.Create(s.ctx, sess))

	s.advance(sessionTTL / 2)
	sess.Conversation.Append(model.Turn{Role: model.SpeakerUser, Content: "toujours là"})
	s.save(sess)
	s.advance(sessionTTL/2 + time.Minute)

	got, err := s.repo.Get(s.ctx, "active")
	s.Require().NoError(err)
	s.Equal(2, got.Conversation.Len())
}

func TestMemorySessionRepository(t *testing.T) {
	var now time.Time
	suite.Run(t, &SessionRepositorySuite{
		newRepo: func() SessionRepository {
			now = time.Now()
			return newMemorySessionRepository(sessionTTL, func() time.Time { return now })
		},
		advance: func(d time.Duration) { now = now.Add(d) },
	})
}

func TestRedisSessionRepository(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	suite.Run(t, &SessionRepositorySuite{
		newRepo: func() SessionRepository {
			mr.FlushAll()
			return NewRedisSessionRepository(client, sessionTTL, time.Minute)
		},
		advance: mr.FastForward,
	})
}

func TestMemorySweepsExpiredOnCreate(t *testing.T) {
	now := time.Now()
	repo := newMemorySessionRepository(time.Minute, func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, model.NewSession("old-1", "Bonjour !", now)))
	require.NoError(t, repo.Create(ctx, model.NewSession("old-2", "Bonjour !", now)))
	_, ok, err := repo.AcquireTurn(ctx, "old-2")
	require.NoError(t, err)
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	require.NoError(t, repo.Create(ctx, model.NewSession("new", "Bonjour !", now)))

	assert.Len(t, repo.sessions, 2)
	assert.NotContains(t, repo.sessions, "old-1")
	assert.Contains(t, repo.sessions, "old-2", "sessions with a turn in flight are kept")
}

func TestMemoryWithoutTTLNeverExpires(t *testing.T) {
	now := time.Now()
	repo := newMemorySessionRepository(0, func() time.Time { return now })
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, model.NewSession("keep", "Bonjour !", now)))

	now = now.Add(365 * 24 * time.Hour)
	_, err := repo.Get(ctx, "keep")
	assert.NoError(t, err)
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisExpiredLockRejectsStaleOwner(t *testing.T) {
	mr, client := newTestRedis(t)
	repo := NewRedisSessionRepository(client, time.Hour, 10*time.Minute)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, model.NewSession("s", "Bonjour !", time.Now())))

	first, ok, err := repo.AcquireTurn(ctx, "s")
	require.NoError(t, err)
	require.True(t, ok)
	stale, err := repo.Get(ctx, "s")
	require.NoError(t, err)

	// 进程卡住超过锁的过期时间，第二个请求拿到锁
	mr.FastForward(11 * time.Minute)
	second, ok, err := repo.AcquireTurn(ctx, "s")
	require.NoError(t, err)
	require.True(t, ok)

	fresh := stale.Clone()
	fresh.Conversation.Append(model.Turn{Role: model.SpeakerUser, Content: "second"})
	require.NoError(t, repo.SaveTurn(ctx, fresh, second))

	stale.Conversation.Append(model.Turn{Role: model.SpeakerUser, Content: "first"})
	assert.ErrorIs(t, repo.SaveTurn(ctx, stale, first), ErrTurnLockLost)
	require.NoError(t, repo.ReleaseTurn(ctx, "s", first))
	assert.True(t, mr.Exists(inFlightKey("s")), "stale release must not drop the new owner's lock")

	require.NoError(t, repo.ReleaseTurn(ctx, "s", second))
	assert.False(t, mr.Exists(inFlightKey("s")))

	got, err := repo.Get(ctx, "s")
	require.NoError(t, err)
	last, _ := got.Conversation.Last()
	assert.Equal(t, "second", last.Content)
}

func TestRedisTurnLockIsRefreshedWhileHeld(t *testing.T) {
	mr, client := newTestRedis(t)
	repo := NewRedisSessionRepository(client, time.Hour, 300*time.Millisecond)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, model.NewSession("slow", "Bonjour !", time.Now())))

	owner, ok, err := repo.AcquireTurn(ctx, "slow")
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(250 * time.Millisecond)
	require.Eventually(t, func() bool {
		return mr.TTL(inFlightKey("slow")) > 200*time.Millisecond
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, repo.ReleaseTurn(ctx, "slow", owner))
	assert.False(t, mr.Exists(inFlightKey("slow")))
}

func TestRedisSessionExpires(t *testing.T) {
	mr, client := newTestRedis(t)

	repo := NewRedisSessionRepository(client, time.Minute, time.Minute)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, model.NewSession("ttl", "Bonjour !", time.Now())))

	mr.FastForward(2 * time.Minute)

	_, err := repo.Get(ctx, "ttl")
	require.ErrorIs(t, err, ErrSessionNotFound)
}
