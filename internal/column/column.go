package column

import (
	"slices"

	"github.com/LJTian/NewsNow/internal/registry"
)

// Match 决定栏目成员的筛选方式
type Match int

const (
	// MatchNone 栏目不从注册表推导，例如用户自选的“关注”
	MatchNone Match = iota
	// MatchColumn 按描述的 column 字段筛选
	MatchColumn
	// MatchType 按描述的 type 字段筛选，用于跨栏目的“最热”“实时”
	MatchType
)

// Spec 描述一个栏目如何从注册表推导：筛选、排除，然后按顺序执行重排规则
type Spec struct {
	ID      string
	Name    string
	Match   Match
	Key     string
	Exclude []string
	Rules   Pipeline
}

// Column 是推导后的栏目
type Column struct {
	Name    string   `json:"name"`
	Sources []string `json:"sources"`
}

// Metadata 为栏目 ID 到栏目的映射
type Metadata map[string]Column

// Focus 为用户自选栏目，成员完全由客户端决定
const Focus = "focus"

var (
	financePreferred = []string{"xueqiu-hotstock", "jin10"}
	techFirst        = []string{"36kr-quick"}
	techLast         = []string{"36kr-renqi", "producthunt"}
)

// Specs 按声明顺序列出全部栏目
var Specs = []Spec{
	{ID: "news", Name: "新闻", Match: MatchColumn, Key: "china"},
	{ID: "china", Name: "国内", Match: MatchColumn, Key: "china"},
	{ID: "world", Name: "国际", Match: MatchColumn, Key: "world"},
	{
		ID: "tech", Name: "科技", Match: MatchColumn, Key: "tech",
		Exclude: []string{"36kr-renqi"},
		Rules: Pipeline{
			AnchorInsertion{Anchor: "ithome", IDs: []string{"sspai", "juejin"}},
			PreferredFirst{IDs: techFirst},
			PreferredLast{IDs: techLast},
		},
	},
	{
		ID: "finance", Name: "财经", Match: MatchColumn, Key: "finance",
		Rules: Pipeline{
			GroupAdjacency{Move: "cls-", Before: "wallstreetcn-"},
			PreferredFirst{IDs: financePreferred},
		},
	},
	{ID: Focus, Name: "关注", Match: MatchNone},
	{
		ID: "realtime", Name: "实时", Match: MatchType, Key: "realtime",
		Exclude: []string{"pcbeta-windows11"},
	},
	{
		ID: "hottest", Name: "最热", Match: MatchType, Key: "hottest",
		Exclude: []string{"producthunt", "hackernews", "steam", "freebuf"},
	},
}

// FixedIDs 是客户端可见、参与偏好持久化的栏目
var FixedIDs = []string{Focus, "hottest", "realtime", "tech", "news", "world", "finance"}

// IsFixed 判断栏目是否参与偏好持久化
func IsFixed(id string) bool {
	return slices.Contains(FixedIDs, id)
}

// Lookup 按 ID 查找栏目声明
func Lookup(id string) (Spec, bool) {
	for _, s := range Specs {
		if s.ID == id {
			return s, true
		}
	}
	return Spec{}, false
}

// Members 返回规格在注册表上的基础成员（未重排），保持注册顺序
func (s Spec) Members(reg *registry.Registry) []string {
	out := []string{}
	if s.Match == MatchNone {
		return out
	}
	for _, d := range reg.Canonical() {
		field := d.Column
		if s.Match == MatchType {
			field = d.Type
		}
		if field != s.Key || slices.Contains(s.Exclude, d.ID) {
			continue
		}
		out = append(out, d.ID)
	}
	return out
}

// Compose 从注册表推导全部栏目，结果只依赖注册表与规则，可重复计算
func Compose(reg *registry.Registry) Metadata {
	meta := make(Metadata, len(Specs))
	for _, s := range Specs {
		ids := s.Members(reg)
		if len(s.Rules) > 0 {
			ids = s.Rules.Apply(ids)
		}
		meta[s.ID] = Column{Name: s.Name, Sources: ids}
	}
	return meta
}

// Fixed 只保留 FixedIDs 中的栏目
func (m Metadata) Fixed() map[string][]string {
	out := make(map[string][]string, len(FixedIDs))
	for _, id := range FixedIDs {
		out[id] = clone(m[id].Sources)
	}
	return out
}
