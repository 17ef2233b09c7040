package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Session 是服务端保存的后台登录会话。
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired 判断会话在 now 时是否已过期。
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SessionStore 保存会话。Get 对不存在或已过期的会话返回 ok=false。
type SessionStore interface {
	Create(ctx context.Context, ttl time.Duration) (Session, error)
	Get(ctx context.Context, id string) (Session, bool, error)
	Delete(ctx context.Context, id string) error
	Prune(ctx context.Context) (int, error)
}

// MemoryStore 是进程内的会话存储，需要定期 Prune。
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]Session
	now      func() time.Time
}

// NewMemoryStore 创建内存会话存储，now 为空时使用 time.Now。
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{sessions: make(map[string]Session), now: now}
}

func (m *MemoryStore) Create(_ context.Context, ttl time.Duration) (Session, error) {
	now := m.now()
	s := Session{ID: uuid.NewString(), CreatedAt: now, ExpiresAt: now.Add(ttl)}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s, nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, false, nil
	}
	if s.Expired(m.now()) {
		delete(m.sessions, id)
		return Session{}, false, nil
	}
	return s, true, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

// Prune 删除所有过期会话并返回删除数量。
func (m *MemoryStore) Prune(_ context.Context) (int, error) {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

// Len 返回当前保存的会话数。
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// RedisStore 把会话保存在 Redis 中，过期由 key TTL 负责，多实例共享。
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisStore 使用已有的 Redis 客户端创建会话存储。
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client, keyPrefix: "admin:session:"}
}

func (r *RedisStore) key(id string) string {
	return r.keyPrefix + id
}

func (r *RedisStore) Create(ctx context.Context, ttl time.Duration) (Session, error) {
	now := time.Now()
	s := Session{ID: uuid.NewString(), CreatedAt: now, ExpiresAt: now.Add(ttl)}
	data, err := json.Marshal(s)
	if err != nil {
		return Session{}, err
	}
	if err := r.client.Set(ctx, r.key(s.ID), data, ttl).Err(); err != nil {
		return Session{}, fmt.Errorf("保存会话失败: %w", err)
	}
	return s, nil
}

func (r *RedisStore) Get(ctx context.Context, id string) (Session, bool, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, fmt.Errorf("读取会话失败: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, false, fmt.Errorf("解析会话失败: %w", err)
	}
	if s.Expired(time.Now()) {
		return Session{}, false, nil
	}
	return s, true, nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("删除会话失败: %w", err)
	}
	return nil
}

// Prune 对 Redis 无需操作，key 到期自动删除。
func (r *RedisStore) Prune(context.Context) (int, error) {
	return 0, nil
}

// PruneTask 返回定期清理过期会话的任务。
func PruneTask(store SessionStore, logger *zap.Logger) func(context.Context) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context) error {
		n, err := store.Prune(ctx)
		if err != nil {
			return fmt.Errorf("清理过期会话失败: %w", err)
		}
		if n > 0 {
			logger.Info("expired sessions pruned", zap.Int("count", n))
		}
		return nil
	}
}
