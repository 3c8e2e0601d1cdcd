package storage

import (
	"context"
	"sync"
	"time"

	"github.com/LJTian/NewsNow/internal/collector"
	"github.com/LJTian/NewsNow/internal/processor"
)

// MemoryStore 是未配置数据库时使用的进程内快照存储
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string]Snapshot
	failures  map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snapshots: make(map[string]Snapshot),
		failures:  make(map[string]string),
	}
}

func (m *MemoryStore) SaveSnapshot(_ context.Context, source string, records []processor.Record, fetchedAt time.Time) error {
	items := make([]collector.Item, len(records))
	for i, r := range records {
		items[i] = r.Item
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(items) == 0 {
		delete(m.snapshots, source)
	} else {
		m.snapshots[source] = Snapshot{Source: source, FetchedAt: fetchedAt, Items: items}
	}
	delete(m.failures, source)
	return nil
}

func (m *MemoryStore) LatestSnapshot(_ context.Context, source string) (Snapshot, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snapshots[source]
	if !ok {
		return Snapshot{}, false, nil
	}
	snap.Items = append([]collector.Item(nil), snap.Items...)
	return snap, true, nil
}

func (m *MemoryStore) RecordFailure(_ context.Context, source string, fetchErr error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[source] = fetchErr.Error()
	return nil
}

// LastError 返回最近一次失败信息，成功抓取后清空
func (m *MemoryStore) LastError(source string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.failures[source]
}
