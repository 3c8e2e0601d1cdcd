package collector

import (
	"context"
	"fmt"
	"strconv"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	hnBaseURL     = "https://hacker-news.firebaseio.com/v0"
	hnMaxItems    = 30
	hnConcurrency = 10
)

type hnItem struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Score       int    `json:"score"`
	Descendants int    `json:"descendants"`
	By          string `json:"by"`
	Time        int64  `json:"time"`
	Type        string `json:"type"`
}

// fetchHackerNews 通过官方 Firebase API 抓取 Hacker News 热门故事，保持榜单顺序
func (c *Collector) fetchHackerNews(ctx context.Context) ([]Item, error) {
	var ids []int
	if err := c.getJSON(ctx, hnBaseURL+"/topstories.json", nil, &ids); err != nil {
		return nil, fmt.Errorf("fetch top stories: %w", err)
	}
	if len(ids) > hnMaxItems {
		ids = ids[:hnMaxItems]
	}

	// 单条失败只跳过，不影响其它条目
	stories := make([]*hnItem, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(hnConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			var it hnItem
			if err := c.getJSON(gctx, fmt.Sprintf("%s/item/%d.json", hnBaseURL, id), nil, &it); err != nil {
				log.WithField("source", "hackernews").Debugf("fetch item %d: %v", id, err)
				return nil
			}
			if it.Title == "" || it.Type != "story" {
				return nil
			}
			stories[i] = &it
			return nil
		})
	}
	_ = g.Wait()

	items := make([]Item, 0, len(stories))
	for _, it := range stories {
		if it == nil {
			continue
		}
		link := it.URL
		if link == "" {
			link = fmt.Sprintf("https://news.ycombinator.com/item?id=%d", it.ID)
		}
		items = append(items, Item{
			ID:          strconv.Itoa(it.ID),
			Title:       it.Title,
			URL:         link,
			PublishedAt: unixMillis(it.Time),
			Extra:       newExtra(ExtraInfo, fmt.Sprintf("%d points by %s · %d comments", it.Score, it.By, it.Descendants)),
		})
	}
	return items, nil
}
