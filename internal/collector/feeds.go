package collector

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/mmcdole/gofeed"
	log "github.com/sirupsen/logrus"
)

var v2exFeeds = []string{"create", "ideas", "programmer", "share"}

// parseFeed 自动识别 RSS / Atom / JSON Feed
func (c *Collector) parseFeed(ctx context.Context, feedURL string) ([]Item, error) {
	body, err := c.getBody(ctx, feedURL, nil)
	if err != nil {
		return nil, err
	}
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaChanged, err)
	}
	items := make([]Item, 0, len(feed.Items))
	for _, fi := range feed.Items {
		link := resolveURL(feedURL, fi.Link)
		id := fi.GUID
		if id == "" {
			id = link
		}
		it := Item{ID: id, Title: fi.Title, URL: link}
		switch {
		case fi.PublishedParsed != nil:
			it.PublishedAt = millis(*fi.PublishedParsed)
		case fi.UpdatedParsed != nil:
			it.PublishedAt = millis(*fi.UpdatedParsed)
		}
		items = append(items, it)
	}
	return items, nil
}

func (c *Collector) fetchSolidot(ctx context.Context) ([]Item, error) {
	return c.parseFeed(ctx, "https://www.solidot.org/index.rss")
}

func (c *Collector) fetchProductHunt(ctx context.Context) ([]Item, error) {
	return c.parseFeed(ctx, "https://www.producthunt.com/feed")
}

// fetchV2exShare 合并几个节点的 JSON Feed，按时间倒序
func (c *Collector) fetchV2exShare(ctx context.Context) ([]Item, error) {
	var (
		items []Item
		errs  []error
	)
	for _, node := range v2exFeeds {
		list, err := c.parseFeed(ctx, "https://www.v2ex.com/feed/"+node+".json")
		if err != nil {
			log.WithField("source", "v2ex-share").Debugf("feed %s: %v", node, err)
			errs = append(errs, fmt.Errorf("%s: %w", node, err))
			continue
		}
		items = append(items, list...)
	}
	if len(errs) == len(v2exFeeds) {
		return nil, errors.Join(errs...)
	}
	sortByPubDate(items)
	return items, nil
}
