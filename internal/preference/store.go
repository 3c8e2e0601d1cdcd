package preference

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"
)

// ErrNotFound 由 KV 实现在键不存在时返回
var ErrNotFound = errors.New("preference: not found")

// KV 是偏好文档的外部存储，只需要读写语义
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Store 在 KV 之上实现按 updatedTime 的后写者胜出
type Store struct {
	kv         KV
	reconciler *Reconciler
	// 同进程内串行化 读-比较-写
	mu sync.Mutex
}

func NewStore(kv KV, r *Reconciler) *Store {
	return &Store{kv: kv, reconciler: r}
}

// Load 读取并合并客户端偏好；不存在或损坏时返回默认值
func (s *Store) Load(ctx context.Context, key string) (Preference, error) {
	raw, err := s.kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return s.reconciler.Default(), nil
	}
	if err != nil {
		return Preference{}, err
	}
	return s.reconciler.Load(raw), nil
}

// Save 仅当 p.UpdatedTime 严格大于已存值时写入，否则静默忽略并返回 false
func (s *Store) Save(ctx context.Context, key string, p Preference) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	raw, err := s.kv.Get(ctx, key)
	switch {
	case err == nil:
		if stored, perr := Parse(raw); perr == nil {
			current = stored.UpdatedTime
		}
	case errors.Is(err, ErrNotFound):
	default:
		return false, err
	}

	if p.UpdatedTime <= current {
		log.WithField("key", key).Debugf("drop stale preference write: %d <= %d", p.UpdatedTime, current)
		return false, nil
	}

	bs, err := json.Marshal(p)
	if err != nil {
		return false, err
	}
	if err := s.kv.Set(ctx, key, bs); err != nil {
		return false, err
	}
	return true, nil
}

// MemoryKV 是进程内的 KV 实现，未配置数据库时使用
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}
