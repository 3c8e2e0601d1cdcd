package processor

import (
	"crypto/sha1"
	"encoding/hex"
	"net/url"
	"strings"

	"github.com/LJTian/NewsNow/internal/collector"
)

// Record 是写入存储层前的统一结构
type Record struct {
	// Key = sha1(source + "\x00" + item id)，跨数据源唯一
	Key    string
	Source string
	// 在本次抓取结果中的名次，从 1 开始
	Rank int
	collector.Item
}

// SimpleProcessor 做基础的数据清洗与 Key 生成
type SimpleProcessor struct{}

func NewSimpleProcessor() *SimpleProcessor {
	return &SimpleProcessor{}
}

// Process 清洗一次抓取结果：去掉首尾空白，丢弃缺少标题或绝对地址的条目，同一 ID 只保留第一条
func (p *SimpleProcessor) Process(source string, items []collector.Item) []Record {
	out := make([]Record, 0, len(items))
	seen := make(map[string]struct{}, len(items))

	for _, it := range items {
		it.Title = strings.TrimSpace(it.Title)
		it.URL = strings.TrimSpace(it.URL)
		if it.Title == "" || !absolute(it.URL) {
			continue
		}
		if it.ID == "" {
			it.ID = it.URL
		}
		if _, ok := seen[it.ID]; ok {
			continue
		}
		seen[it.ID] = struct{}{}

		out = append(out, Record{
			Key:    hashKey(source, it.ID),
			Source: source,
			Rank:   len(out) + 1,
			Item:   it,
		})
	}
	return out
}

// Items 取回清洗后的条目，保持顺序
func Items(records []Record) []collector.Item {
	out := make([]collector.Item, len(records))
	for i, r := range records {
		out[i] = r.Item
	}
	return out
}

func absolute(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func hashKey(source, id string) string {
	h := sha1.New()
	h.Write([]byte(source))
	h.Write([]byte{0})
	h.Write([]byte(id))
	return hex.EncodeToString(h.Sum(nil))
}
