package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/LJTian/NewsNow/internal/preference"
)

// Preference 按客户端 ID 保存栏目偏好的原始 JSON 文档
type Preference struct {
	ClientID  string         `gorm:"primaryKey;size:64" json:"clientId"`
	Document  datatypes.JSON `gorm:"type:jsonb" json:"document"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// PreferenceKV 在 preferences 表上实现 preference.KV
type PreferenceKV struct {
	DB *gorm.DB
}

func (s *Store) Preferences() *PreferenceKV {
	return &PreferenceKV{DB: s.DB}
}

// Get 读取文档；不存在时返回 preference.ErrNotFound
func (kv *PreferenceKV) Get(ctx context.Context, key string) ([]byte, error) {
	var p Preference
	// 未找到是常态，不打 record not found 日志
	silent := kv.DB.Session(&gorm.Session{Logger: kv.DB.Logger.LogMode(logger.Silent)})
	err := silent.WithContext(ctx).Where("client_id = ?", key).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, preference.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(p.Document), nil
}

// Set 写入或覆盖文档
func (kv *PreferenceKV) Set(ctx context.Context, key string, value []byte) error {
	p := Preference{ClientID: key, Document: datatypes.JSON(value), UpdatedAt: time.Now()}
	return kv.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "client_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"document", "updated_at"}),
	}).Create(&p).Error
}
