package collector

import (
	"bytes"
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
)

const ithomeListURL = "https://www.ithome.com/list/"

// IT之家列表里混有导购文章
var ithomeAdWords = []string{"神券", "优惠", "补贴", "京东"}

func (c *Collector) fetchIthome(ctx context.Context) ([]Item, error) {
	body, err := c.getBody(ctx, ithomeListURL, nil)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var items []Item
	doc.Find("#list > div.fl > ul > li").Each(func(_ int, s *goquery.Selection) {
		a := s.Find("a.t").First()
		href, _ := a.Attr("href")
		title := strings.TrimSpace(a.Text())
		link := resolveURL(ithomeListURL, href)
		if link == "" || title == "" || isIthomeAd(link, title) {
			return
		}
		it := Item{ID: link, Title: title, URL: link}
		if t, err := dateparse.ParseIn(strings.TrimSpace(s.Find("i").First().Text()), shanghai); err == nil {
			it.PublishedAt = millis(t)
		}
		items = append(items, it)
	})
	return items, nil
}

func isIthomeAd(link, title string) bool {
	if strings.Contains(link, "lapin") {
		return true
	}
	for _, w := range ithomeAdWords {
		if strings.Contains(title, w) {
			return true
		}
	}
	return false
}

func (c *Collector) fetchSspai(ctx context.Context) ([]Item, error) {
	var res struct {
		Data []struct {
			ID    int64  `json:"id"`
			Title string `json:"title"`
		} `json:"data"`
	}
	u := "https://sspai.com/api/v1/article/tag/page/get?limit=30&offset=0&tag=" + url.QueryEscape("热门文章") + "&released=false"
	if err := c.getJSON(ctx, u, nil, &res); err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(res.Data))
	for _, d := range res.Data {
		id := strconv.FormatInt(d.ID, 10)
		items = append(items, Item{ID: id, Title: d.Title, URL: "https://sspai.com/post/" + id})
	}
	return items, nil
}

func (c *Collector) fetchJuejin(ctx context.Context) ([]Item, error) {
	var res struct {
		Data []struct {
			Content struct {
				ContentID string `json:"content_id"`
				Title     string `json:"title"`
			} `json:"content"`
		} `json:"data"`
	}
	if err := c.getJSON(ctx, "https://api.juejin.cn/content_api/v1/content/article_rank?category_id=1&type=hot&spider=0", nil, &res); err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(res.Data))
	for _, d := range res.Data {
		if d.Content.ContentID == "" {
			continue
		}
		items = append(items, Item{
			ID:    d.Content.ContentID,
			Title: d.Content.Title,
			URL:   "https://juejin.cn/post/" + d.Content.ContentID,
		})
	}
	return items, nil
}
