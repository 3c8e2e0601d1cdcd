package collector

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
)

var reTrailingDigits = regexp.MustCompile(`(\d+)$`)

func (c *Collector) fetchZhihu(ctx context.Context) ([]Item, error) {
	var res struct {
		Data []struct {
			Target struct {
				TitleArea struct {
					Text string `json:"text"`
				} `json:"title_area"`
				ExcerptArea struct {
					Text string `json:"text"`
				} `json:"excerpt_area"`
				MetricsArea struct {
					Text string `json:"text"`
				} `json:"metrics_area"`
				Link struct {
					URL string `json:"url"`
				} `json:"link"`
			} `json:"target"`
		} `json:"data"`
	}
	if err := c.getJSON(ctx, "https://www.zhihu.com/api/v3/feed/topstory/hot-list-web?limit=20&desktop=true", nil, &res); err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(res.Data))
	for _, d := range res.Data {
		link := d.Target.Link.URL
		id := link
		if m := reTrailingDigits.FindStringSubmatch(link); m != nil {
			id = m[1]
		}
		items = append(items, Item{
			ID:    id,
			Title: d.Target.TitleArea.Text,
			URL:   link,
			Extra: newExtra(ExtraInfo, d.Target.MetricsArea.Text, ExtraHover, d.Target.ExcerptArea.Text),
		})
	}
	return items, nil
}

func (c *Collector) fetchToutiao(ctx context.Context) ([]Item, error) {
	var res struct {
		Data []struct {
			ClusterIDStr string `json:"ClusterIdStr"`
			Title        string `json:"Title"`
			HotValue     string `json:"HotValue"`
			LabelURI     *struct {
				URL string `json:"url"`
			} `json:"LabelUri"`
		} `json:"data"`
	}
	if err := c.getJSON(ctx, "https://www.toutiao.com/hot-event/hot-board/?origin=toutiao_pc", nil, &res); err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(res.Data))
	for _, d := range res.Data {
		if d.ClusterIDStr == "" {
			continue
		}
		icon := ""
		if d.LabelURI != nil {
			icon = d.LabelURI.URL
		}
		items = append(items, Item{
			ID:    d.ClusterIDStr,
			Title: d.Title,
			URL:   "https://www.toutiao.com/trending/" + d.ClusterIDStr + "/",
			Extra: newExtra(ExtraIcon, icon),
		})
	}
	return items, nil
}

func (c *Collector) fetchThepaper(ctx context.Context) ([]Item, error) {
	var res struct {
		Data struct {
			HotNews []struct {
				ContID      string `json:"contId"`
				Name        string `json:"name"`
				PubTimeLong int64  `json:"pubTimeLong"`
			} `json:"hotNews"`
		} `json:"data"`
	}
	if err := c.getJSON(ctx, "https://cache.thepaper.cn/contentapi/wwwIndex/rightSidebar", nil, &res); err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(res.Data.HotNews))
	for _, n := range res.Data.HotNews {
		if n.ContID == "" {
			continue
		}
		var pub *int64
		if n.PubTimeLong > 0 {
			ms := n.PubTimeLong
			pub = &ms
		}
		items = append(items, Item{
			ID:          n.ContID,
			Title:       n.Name,
			URL:         "https://www.thepaper.cn/newsDetail_forward_" + n.ContID,
			PublishedAt: pub,
		})
	}
	return items, nil
}

func (c *Collector) fetchTieba(ctx context.Context) ([]Item, error) {
	var res struct {
		Data struct {
			BangTopic struct {
				TopicList []struct {
					TopicID   int64  `json:"topic_id"`
					TopicName string `json:"topic_name"`
					TopicDesc string `json:"topic_desc"`
					TopicURL  string `json:"topic_url"`
				} `json:"topic_list"`
			} `json:"bang_topic"`
		} `json:"data"`
	}
	if err := c.getJSON(ctx, "https://tieba.baidu.com/hottopic/browse/topicList", nil, &res); err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(res.Data.BangTopic.TopicList))
	for _, t := range res.Data.BangTopic.TopicList {
		items = append(items, Item{
			ID:    fmt.Sprint(t.TopicID),
			Title: t.TopicName,
			URL:   resolveURL("https://tieba.baidu.com", t.TopicURL),
			Extra: newExtra(ExtraHover, t.TopicDesc),
		})
	}
	return items, nil
}

var cankaoxiaoxiChannels = []string{"zhongguo", "guandian", "gj"}

// fetchCankaoxiaoxi 合并多个频道，失败的频道跳过，全部失败才报错
func (c *Collector) fetchCankaoxiaoxi(ctx context.Context) ([]Item, error) {
	type entry struct {
		Data struct {
			ID          string `json:"id"`
			Title       string `json:"title"`
			URL         string `json:"url"`
			PublishTime string `json:"publishTime"`
		} `json:"data"`
	}

	var (
		items []Item
		errs  []error
		seen  = make(map[string]bool)
	)
	for _, ch := range cankaoxiaoxiChannels {
		var res struct {
			List []entry `json:"list"`
		}
		u := "https://china.cankaoxiaoxi.com/json/channel/" + ch + "/list.json"
		if err := c.getJSON(ctx, u, nil, &res); err != nil {
			log.WithField("source", "cankaoxiaoxi").Debugf("channel %s: %v", ch, err)
			errs = append(errs, fmt.Errorf("%s: %w", ch, err))
			continue
		}
		for _, e := range res.List {
			d := e.Data
			if d.ID == "" || seen[d.ID] {
				continue
			}
			seen[d.ID] = true
			it := Item{ID: d.ID, Title: strings.TrimSpace(d.Title), URL: d.URL}
			if t, ok := parseRelativeDate(d.PublishTime, shanghai, c.now()); ok {
				it.PublishedAt = millis(t)
			}
			items = append(items, it)
		}
	}
	if len(errs) == len(cankaoxiaoxiChannels) {
		return nil, errors.Join(errs...)
	}
	sortByPubDate(items)
	return items, nil
}

// sortByPubDate 按发布时间倒序，缺少时间的排在最后，保持稳定
func sortByPubDate(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].PublishedAt, items[j].PublishedAt
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return *a > *b
	})
}
