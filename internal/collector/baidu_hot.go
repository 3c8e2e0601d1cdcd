package collector

import (
	"context"
	"strings"

	"github.com/gocolly/colly/v2"
	log "github.com/sirupsen/logrus"
)

const baiduHotURL = "https://top.baidu.com/board?tab=realtime"

// 页面结构会调整，介绍文案按顺序尝试这些选择器
var baiduDescSelectors = []string{
	"div[class*='content']",
	"div[class*='Content']",
	"div[class*='desc']",
	"div[class*='abstract']",
	"div[class*='intro']",
	"p",
}

// fetchBaiduHot 抓取百度实时热搜榜
func (c *Collector) fetchBaiduHot(ctx context.Context) ([]Item, error) {
	log.WithField("source", "baidu").Debug("fetch Baidu Hot Search...")

	sc := c.newScraper(ctx, "top.baidu.com")
	items := make([]Item, 0, 50)

	sc.OnHTML("div.category-wrap_iQLoo", func(e *colly.HTMLElement) {
		title := strings.TrimSpace(e.ChildText("div.c-single-text-ellipsis"))
		if title == "" {
			return
		}
		link := resolveURL(baiduHotURL, e.ChildAttr("a", "href"))
		if link == "" {
			return
		}

		var desc string
		for _, sel := range baiduDescSelectors {
			if desc = strings.TrimSpace(e.ChildText(sel)); desc != "" {
				break
			}
		}

		heat := parseInt(e.ChildText("div.hot-index_1Bl1a"))
		info := ""
		if heat > 0 {
			info = formatCount(int64(heat)) + "热度"
		}
		items = append(items, Item{
			ID:    link,
			Title: title,
			URL:   link,
			Extra: newExtra(ExtraInfo, info, ExtraHover, cleanBaiduDesc(desc)),
		})
	})

	if err := sc.Visit(baiduHotURL); err != nil {
		return nil, err
	}
	return items, nil
}

// cleanBaiduDesc 去掉简介中的“查看更多”等链接文案，只保留正文
func cleanBaiduDesc(s string) string {
	s = strings.TrimSpace(s)
	for _, cut := range []string{"[查看更多>]", "[查看更多&gt;]", "查看更多"} {
		if idx := strings.Index(s, cut); idx != -1 {
			s = strings.TrimSpace(s[:idx])
		}
	}
	return strings.TrimSuffix(s, "…")
}

// parseInt 解析 "1,234,567" 一类文本，忽略尾部单位
func parseInt(s string) int {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	n := 0
	for i := 0; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		n = n*10 + int(s[i]-'0')
	}
	return n
}
