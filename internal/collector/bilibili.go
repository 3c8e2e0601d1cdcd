package collector

import (
	"context"
	"fmt"
)

var bilibiliHeaders = map[string]string{
	"Referer": "https://www.bilibili.com/",
	"Origin":  "https://www.bilibili.com",
	"Accept":  "application/json, text/plain, */*",
}

// 同一份数据有多个等价接口，按顺序尝试
var (
	bilibiliHotSearchURLs = []string{
		"https://s.search.bilibili.com/main/hotword?limit=30",
		"https://s.search.bilibili.com/main/hotword?limit=50",
	}
	bilibiliHotVideoURLs = []string{
		"https://api.bilibili.com/x/web-interface/popular?pn=1&ps=30",
		"https://api.bilibili.com/x/web-interface/popular",
	}
	bilibiliRankingURLs = []string{
		"https://api.bilibili.com/x/web-interface/ranking/v2?rid=0&type=all",
		"https://api.bilibili.com/x/web-interface/ranking/v2",
		"https://api.bilibili.com/x/web-interface/ranking?rid=0&day=3&type=1",
		"https://api.bilibili.com/x/web-interface/ranking?rid=0&type=all",
	}
)

type bilibiliHotword struct {
	Keyword  string `json:"keyword"`
	ShowName string `json:"show_name"`
	Icon     string `json:"icon"`
}

type bilibiliVideo struct {
	Bvid    string `json:"bvid"`
	Title   string `json:"title"`
	Pic     string `json:"pic"`
	Desc    string `json:"desc"`
	Pubdate int64  `json:"pubdate"`
	Owner   struct {
		Name string `json:"name"`
	} `json:"owner"`
	Stat struct {
		View int64 `json:"view"`
		Like int64 `json:"like"`
	} `json:"stat"`
}

// 列表可能在 data.list 下，也可能直接在顶层 list
type bilibiliVideoResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    *struct {
		List []bilibiliVideo `json:"list"`
	} `json:"data"`
	List []bilibiliVideo `json:"list"`
}

func (r *bilibiliVideoResponse) videos() []bilibiliVideo {
	if r.Data != nil && len(r.Data.List) > 0 {
		return r.Data.List
	}
	return r.List
}

func (c *Collector) fetchBilibiliHotSearch(ctx context.Context) ([]Item, error) {
	return firstValid(ctx, bilibiliHotSearchURLs, func(ctx context.Context, u string) ([]Item, error) {
		var res struct {
			List []bilibiliHotword `json:"list"`
		}
		if err := c.getJSON(ctx, u, bilibiliHeaders, &res); err != nil {
			return nil, err
		}
		items := make([]Item, 0, len(res.List))
		for _, k := range res.List {
			if k.Keyword == "" {
				continue
			}
			title := k.ShowName
			if title == "" {
				title = k.Keyword
			}
			items = append(items, Item{
				ID:    k.Keyword,
				Title: title,
				URL:   "https://search.bilibili.com/all?keyword=" + encodeComponent(k.Keyword),
				Extra: newExtra(ExtraIcon, k.Icon),
			})
		}
		return items, nil
	})
}

func (c *Collector) fetchBilibiliHotVideo(ctx context.Context) ([]Item, error) {
	return c.fetchBilibiliVideos(ctx, bilibiliHotVideoURLs)
}

func (c *Collector) fetchBilibiliRanking(ctx context.Context) ([]Item, error) {
	return c.fetchBilibiliVideos(ctx, bilibiliRankingURLs)
}

func (c *Collector) fetchBilibiliVideos(ctx context.Context, urls []string) ([]Item, error) {
	return firstValid(ctx, urls, func(ctx context.Context, u string) ([]Item, error) {
		var res bilibiliVideoResponse
		if err := c.getJSON(ctx, u, bilibiliHeaders, &res); err != nil {
			return nil, err
		}
		if res.Code != 0 {
			msg := res.Message
			if msg == "" {
				msg = fmt.Sprintf("code %d", res.Code)
			}
			return nil, fmt.Errorf("bilibili api error: %s", msg)
		}
		return bilibiliVideoItems(res.videos()), nil
	})
}

func bilibiliVideoItems(videos []bilibiliVideo) []Item {
	items := make([]Item, 0, len(videos))
	for _, v := range videos {
		if v.Bvid == "" || v.Title == "" {
			continue
		}
		owner := v.Owner.Name
		if owner == "" {
			owner = "B站"
		}
		items = append(items, Item{
			ID:          v.Bvid,
			Title:       v.Title,
			URL:         "https://www.bilibili.com/video/" + v.Bvid,
			PublishedAt: unixMillis(v.Pubdate),
			Extra: newExtra(
				ExtraInfo, fmt.Sprintf("%s · %s观看 · %s点赞", owner, formatCount(v.Stat.View), formatCount(v.Stat.Like)),
				ExtraHover, v.Desc,
				ExtraIcon, v.Pic,
			),
		})
	}
	return items
}
