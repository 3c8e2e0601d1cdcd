package collector

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/LJTian/NewsNow/internal/waf"
)

// Extra 中约定的展示字段
const (
	ExtraInfo  = "info"  // 作者、热度等附加信息
	ExtraHover = "hover" // 悬浮提示
	ExtraIcon  = "icon"  // 图标地址
	ExtraDate  = "date"  // 次要时间戳（毫秒）
)

// Extra 是数据源特有的展示提示，正确性不依赖它
type Extra map[string]any

// Item 统一采集后的条目
type Item struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
	// 毫秒时间戳，源站未提供时为空
	PublishedAt *int64 `json:"pubDate,omitempty"`
	Extra       Extra  `json:"extra,omitempty"`
}

// Fetcher 抽象每一个数据源
type Fetcher interface {
	Fetch(ctx context.Context) ([]Item, error)
}

// FetcherFunc 让普通函数实现 Fetcher
type FetcherFunc func(ctx context.Context) ([]Item, error)

func (f FetcherFunc) Fetch(ctx context.Context) ([]Item, error) {
	return f(ctx)
}

// Collector 持有所有数据源共享的 HTTP 客户端与 WAF 求解器
type Collector struct {
	Client *http.Client
	// WAF 为空时 36氪 直接以未认证方式请求
	WAF *waf.Solver
	Now func() time.Time
}

// New 创建采集器，client 为空时使用带超时的默认客户端
func New(client *http.Client, solver *waf.Solver) *Collector {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Collector{Client: client, WAF: solver, Now: time.Now}
}

// Fetchers 返回注册表 ID 到数据源的映射。
// 每个数据源的结果都会过滤掉缺少标题或绝对地址的条目，过滤后为空视为结构变化。
func (c *Collector) Fetchers() map[string]Fetcher {
	raw := map[string]func(context.Context) ([]Item, error){
		"36kr-quick":            c.fetch36krQuick,
		"36kr-renqi":            c.fetch36krRenqi,
		"baidu":                 c.fetchBaiduHot,
		"bilibili-hot-search":   c.fetchBilibiliHotSearch,
		"bilibili-hot-video":    c.fetchBilibiliHotVideo,
		"bilibili-ranking":      c.fetchBilibiliRanking,
		"kuaishou":              c.fetchKuaishou,
		"zhihu":                 c.fetchZhihu,
		"toutiao":               c.fetchToutiao,
		"thepaper":              c.fetchThepaper,
		"tieba":                 c.fetchTieba,
		"cankaoxiaoxi":          c.fetchCankaoxiaoxi,
		"wallstreetcn-quick":    c.fetchWallstreetcnQuick,
		"wallstreetcn-news":     c.fetchWallstreetcnNews,
		"wallstreetcn-hot":      c.fetchWallstreetcnHot,
		"cls-telegraph":         c.fetchClsTelegraph,
		"cls-depth":             c.fetchClsDepth,
		"cls-hot":               c.fetchClsHot,
		"xueqiu-hotstock":       c.fetchXueqiuHotStock,
		"jin10":                 c.fetchJin10,
		"ithome":                c.fetchIthome,
		"sspai":                 c.fetchSspai,
		"juejin":                c.fetchJuejin,
		"solidot":               c.fetchSolidot,
		"v2ex-share":            c.fetchV2exShare,
		"hackernews":            c.fetchHackerNews,
		"producthunt":           c.fetchProductHunt,
		"github-trending-today": c.fetchGithubTrending,
	}
	out := make(map[string]Fetcher, len(raw))
	for id, fn := range raw {
		out[id] = guard(id, fn)
	}
	return out
}

func guard(id string, fn func(context.Context) ([]Item, error)) Fetcher {
	return FetcherFunc(func(ctx context.Context) ([]Item, error) {
		items, err := fn(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", id, err)
		}
		items = validItems(items)
		if len(items) == 0 {
			return nil, fmt.Errorf("%s: %w", id, ErrEmptyResult)
		}
		return items, nil
	})
}

func validItems(items []Item) []Item {
	out := items[:0]
	for _, it := range items {
		if it.Title == "" || !isAbsoluteURL(it.URL) {
			continue
		}
		out = append(out, it)
	}
	return out
}

func (c *Collector) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Collector) client() *http.Client {
	if c.Client != nil {
		return c.Client
	}
	return http.DefaultClient
}

// newExtra 按 key/value 成对构建，空值不写入
func newExtra(kv ...string) Extra {
	e := Extra{}
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] != "" {
			e[kv[i]] = kv[i+1]
		}
	}
	if len(e) == 0 {
		return nil
	}
	return e
}

func millis(t time.Time) *int64 {
	if t.IsZero() {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

func unixMillis(sec int64) *int64 {
	if sec <= 0 {
		return nil
	}
	ms := sec * 1000
	return &ms
}
