package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/LJTian/NewsNow/internal/collector"
	"github.com/LJTian/NewsNow/internal/preference"
	"github.com/LJTian/NewsNow/internal/processor"
	"github.com/LJTian/NewsNow/internal/registry"
)

// snapshotCacheTTL 与前端的刷新节奏一致
const snapshotCacheTTL = 5 * time.Minute

// Source 描述一个数据源及其最近一次抓取状态
type Source struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Code     string `gorm:"size:64;uniqueIndex" json:"code"` // 注册表 ID，例如 zhihu / 36kr-quick
	Name     string `gorm:"size:128" json:"name"`
	Category string `gorm:"size:32;index" json:"column"` // 所属栏目
	Type     string `gorm:"size:32" json:"type"`
	Home     string `gorm:"size:256" json:"home"`
	Status   string `gorm:"size:32;index" json:"status"` // active / failing

	LastFetchedAt *time.Time `json:"lastFetchedAt"`
	LastError     string     `gorm:"size:1024" json:"lastError"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// News 是某个数据源最新一次抓取结果中的一条
type News struct {
	Key         string            `gorm:"primaryKey;size:40" json:"key"`
	Source      string            `gorm:"size:64;index:idx_source_rank,priority:1" json:"source"`
	Rank        int               `gorm:"index:idx_source_rank,priority:2" json:"rank"`
	ItemID      string            `gorm:"size:512" json:"itemId"`
	Title       string            `gorm:"size:512" json:"title"`
	URL         string            `gorm:"size:1024" json:"url"`
	PublishedAt *time.Time        `json:"publishedAt"`
	ExtraData   datatypes.JSONMap `gorm:"type:jsonb" json:"extraData"`
	FetchedAt   time.Time         `gorm:"index" json:"fetchedAt"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Snapshot 是一个数据源最近一次成功抓取的结果
type Snapshot struct {
	Source    string           `json:"source"`
	FetchedAt time.Time        `json:"fetchedAt"`
	Items     []collector.Item `json:"items"`
}

// Repository 是调度器与 API 依赖的快照读写接口
type Repository interface {
	SaveSnapshot(ctx context.Context, source string, records []processor.Record, fetchedAt time.Time) error
	LatestSnapshot(ctx context.Context, source string) (Snapshot, bool, error)
	RecordFailure(ctx context.Context, source string, fetchErr error) error
}

type Store struct {
	DB *gorm.DB
	// 为空时不缓存快照
	Redis redis.Cmdable
}

// NewStore 连接 PostgreSQL 并迁移表结构；redisAddr 为空时不启用缓存
func NewStore(dsn, redisAddr string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&Source{}, &News{}, &Preference{}); err != nil {
		return nil, err
	}

	s := &Store{DB: db}
	if redisAddr != "" {
		s.Redis = NewRedis(redisAddr)
	}
	return s, nil
}

// NewRedis 创建 Redis 客户端，连不上只打警告，缓存读写失败时会回落到数据库
func NewRedis(addr string) *redis.Client {
	rdb := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("warn: redis ping failed: %v", err)
	}
	return rdb
}

// EnsureSources 把注册表同步到 sources 表，已存在的更新描述字段
func (s *Store) EnsureSources(ctx context.Context, reg *registry.Registry) error {
	for _, d := range reg.Canonical() {
		if err := s.EnsureSource(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

// EnsureSource 确保某个数据源存在
func (s *Store) EnsureSource(ctx context.Context, d registry.Descriptor) error {
	src := Source{
		Code:     d.ID,
		Name:     d.DisplayName(),
		Category: d.Column,
		Type:     d.Type,
		Home:     d.Home,
		Status:   "active",
	}
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "category", "type", "home", "updated_at"}),
	}).Create(&src).Error
}

// SaveSnapshot 用本次结果整体替换该数据源的旧快照
func (s *Store) SaveSnapshot(ctx context.Context, source string, records []processor.Record, fetchedAt time.Time) error {
	rows := make([]News, 0, len(records))
	for _, r := range records {
		rows = append(rows, toRow(r, fetchedAt))
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("source = ?", source).Delete(&News{}).Error; err != nil {
			return err
		}
		if len(rows) > 0 {
			if err := tx.CreateInBatches(rows, 100).Error; err != nil {
				return err
			}
		}
		return tx.Model(&Source{}).Where("code = ?", source).Updates(map[string]any{
			"last_fetched_at": fetchedAt,
			"last_error":      "",
			"status":          "active",
		}).Error
	})
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", source, err)
	}

	s.publishSnapshot(ctx, fromRows(source, rows))
	return nil
}

// RecordFailure 记录最近一次失败，旧快照保留
func (s *Store) RecordFailure(ctx context.Context, source string, fetchErr error) error {
	msg := truncateRunesDB(toValidUTF8(fetchErr.Error()), 1024)
	return s.DB.WithContext(ctx).Model(&Source{}).Where("code = ?", source).Updates(map[string]any{
		"last_error": msg,
		"status":     "failing",
	}).Error
}

// LatestSnapshot 返回最新快照，先查 Redis 再查数据库
func (s *Store) LatestSnapshot(ctx context.Context, source string) (Snapshot, bool, error) {
	key := snapshotCacheKey(source)
	if s.Redis != nil {
		if bs, err := s.Redis.Get(ctx, key).Bytes(); err == nil {
			var cached Snapshot
			if err := json.Unmarshal(bs, &cached); err == nil {
				return cached, true, nil
			}
		}
	}

	var rows []News
	if err := s.DB.WithContext(ctx).Where("source = ?", source).Order("rank ASC").Find(&rows).Error; err != nil {
		return Snapshot{}, false, err
	}
	if len(rows) == 0 {
		return Snapshot{}, false, nil
	}
	snap := fromRows(source, rows)
	s.fillCache(ctx, snap)
	return snap, true, nil
}

// publishSnapshot 写入后直接覆盖缓存；空快照删除缓存
func (s *Store) publishSnapshot(ctx context.Context, snap Snapshot) {
	if s.Redis == nil {
		return
	}
	key := snapshotCacheKey(snap.Source)
	logger := log.WithField("source", snap.Source)
	if len(snap.Items) == 0 {
		if err := s.Redis.Del(ctx, key).Err(); err != nil {
			logger.Warnf("redis del snapshot error: %v", err)
		}
		return
	}
	bs, err := json.Marshal(snap)
	if err != nil {
		logger.Warnf("encode snapshot error: %v", err)
		return
	}
	if err := s.Redis.Set(ctx, key, bs, snapshotCacheTTL).Err(); err != nil {
		logger.Warnf("redis set snapshot error: %v", err)
	}
}

// fillCache 读路径回填缓存，只在键不存在时写入，不会覆盖并发写入的新快照
func (s *Store) fillCache(ctx context.Context, snap Snapshot) {
	if s.Redis == nil {
		return
	}
	bs, err := json.Marshal(snap)
	if err != nil {
		return
	}
	if err := s.Redis.SetNX(ctx, snapshotCacheKey(snap.Source), bs, snapshotCacheTTL).Err(); err != nil {
		log.WithField("source", snap.Source).Warnf("redis fill snapshot error: %v", err)
	}
}

// ListSources 返回 sources 表中的全部数据源
func (s *Store) ListSources(ctx context.Context) ([]Source, error) {
	var list []Source
	err := s.DB.WithContext(ctx).Order("id ASC").Find(&list).Error
	return list, err
}

func snapshotCacheKey(source string) string {
	return "news:snapshot:" + source
}

func toRow(r processor.Record, fetchedAt time.Time) News {
	n := News{
		Key:       r.Key,
		Source:    r.Source,
		Rank:      r.Rank,
		ItemID:    truncateRunesDB(toValidUTF8(r.ID), 512),
		Title:     truncateRunesDB(toValidUTF8(r.Title), 512),
		URL:       r.URL,
		FetchedAt: fetchedAt,
	}
	if r.PublishedAt != nil {
		t := time.UnixMilli(*r.PublishedAt)
		n.PublishedAt = &t
	}
	if len(r.Extra) > 0 {
		n.ExtraData = datatypes.JSONMap(r.Extra)
	}
	return n
}

func fromRows(source string, rows []News) Snapshot {
	snap := Snapshot{Source: source, Items: make([]collector.Item, 0, len(rows))}
	for _, n := range rows {
		it := collector.Item{ID: n.ItemID, Title: n.Title, URL: n.URL}
		if n.PublishedAt != nil {
			ms := n.PublishedAt.UnixMilli()
			it.PublishedAt = &ms
		}
		if len(n.ExtraData) > 0 {
			it.Extra = collector.Extra(n.ExtraData)
		}
		snap.Items = append(snap.Items, it)
		if n.FetchedAt.After(snap.FetchedAt) {
			snap.FetchedAt = n.FetchedAt
		}
	}
	return snap
}

// toValidUTF8 将字符串规范为合法 UTF-8，避免 PostgreSQL invalid byte sequence 错误
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "\uFFFD")
}

// truncateRunesDB 按 rune 数截断，确保不超过字段长度
func truncateRunesDB(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = strings.TrimSpace(s)
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}

var (
	_ Repository    = (*Store)(nil)
	_ Repository    = (*MemoryStore)(nil)
	_ preference.KV = (*PreferenceKV)(nil)
)
