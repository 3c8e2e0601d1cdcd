package collector

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"

	"github.com/LJTian/NewsNow/internal/waf"
)

const (
	kr36QuickURL = "https://www.36kr.com/newsflashes"
	kr36RenqiURL = "https://36kr.com/hot-list/renqi/%s/1"
)

// wafHeaders 取到令牌时附带 Cookie，取不到就按未认证请求
func (c *Collector) wafHeaders(ctx context.Context, extra map[string]string) map[string]string {
	h := make(map[string]string, len(extra)+1)
	for k, v := range extra {
		h[k] = v
	}
	if c.WAF == nil {
		return h
	}
	if tok, ok := c.WAF.Token(ctx); ok {
		h["Cookie"] = waf.TokenCookie + "=" + tok + ";"
	}
	return h
}

func (c *Collector) fetch36krQuick(ctx context.Context) ([]Item, error) {
	body, err := c.getBody(ctx, kr36QuickURL, c.wafHeaders(ctx, nil))
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	now := c.now()
	var items []Item
	doc.Find(".newsflash-item").Each(func(_ int, s *goquery.Selection) {
		a := s.Find("a.item-title").First()
		href, _ := a.Attr("href")
		title := strings.TrimSpace(a.Text())
		rel := strings.TrimSpace(s.Find(".time").First().Text())
		link := resolveURL(kr36QuickURL, href)
		if link == "" || title == "" || rel == "" {
			return
		}
		it := Item{ID: href, Title: title, URL: link}
		if t, ok := parseRelativeDate(rel, shanghai, now); ok {
			it.Extra = Extra{ExtraDate: t.UnixMilli()}
		} else {
			log.WithField("source", "36kr-quick").Debugf("unrecognised time %q", rel)
		}
		items = append(items, it)
	})
	return items, nil
}

func (c *Collector) fetch36krRenqi(ctx context.Context) ([]Item, error) {
	day := c.now().In(shanghai).Format("2006-01-02")
	pageURL := fmt.Sprintf(kr36RenqiURL, day)
	headers := c.wafHeaders(ctx, map[string]string{
		"Referer": "https://www.freebuf.com/",
		"Accept":  "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
	})
	body, err := c.getBody(ctx, pageURL, headers)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var items []Item
	doc.Find(".article-item-info").Each(func(_ int, s *goquery.Selection) {
		a := s.Find("a.article-item-title.weight-bold").First()
		href, _ := a.Attr("href")
		title := strings.TrimSpace(a.Text())
		link := resolveURL(pageURL, href)
		if link == "" || title == "" {
			return
		}
		author := strings.TrimSpace(s.Find(".kr-flow-bar-author").Text())
		hot := strings.TrimSpace(s.Find(".kr-flow-bar-hot span").Text())
		info := ""
		if author != "" || hot != "" {
			info = author + "  |  " + hot
		}
		items = append(items, Item{
			ID:    strings.TrimPrefix(href, "/p/"),
			Title: title,
			URL:   link,
			Extra: newExtra(
				ExtraInfo, info,
				ExtraHover, strings.TrimSpace(s.Find("a.article-item-description.ellipsis-2").Text()),
			),
		})
	})
	return items, nil
}
