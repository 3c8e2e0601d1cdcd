package collector

import (
	"context"
	"strconv"
	"strings"

	"github.com/gocolly/colly/v2"
)

const githubTrendingURL = "https://github.com/trending?spoken_language_code="

// fetchGithubTrending 抓取 GitHub Trending 今日榜，仓库简介作为悬浮提示
func (c *Collector) fetchGithubTrending(ctx context.Context) ([]Item, error) {
	sc := c.newScraper(ctx, "github.com")
	items := make([]Item, 0, 25)

	sc.OnHTML("article.Box-row", func(e *colly.HTMLElement) {
		a := e.DOM.Find("h2 a").First()
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		// "owner /\n  repo" 去掉空白
		repo := strings.Join(strings.Fields(a.Text()), "")
		link := resolveURL("https://github.com", href)
		if repo == "" || link == "" {
			return
		}

		starsText := strings.TrimSpace(e.ChildText(`a[href$="/stargazers"]`))
		info := ""
		if stars := parseStars(starsText); stars > 0 {
			info = "✰ " + strconv.Itoa(stars)
		}
		items = append(items, Item{
			ID:    strings.TrimPrefix(strings.TrimSpace(href), "/"),
			Title: repo,
			URL:   link,
			Extra: newExtra(ExtraInfo, info, ExtraHover, strings.TrimSpace(e.ChildText("p"))),
		})
	})

	if err := sc.Visit(githubTrendingURL); err != nil {
		return nil, err
	}
	return items, nil
}

// parseStars 将 "12,345" 或 "12.3k" 解析为整数
func parseStars(text string) int {
	text = strings.TrimSpace(strings.ReplaceAll(text, ",", ""))
	if text == "" {
		return 0
	}
	multiplier := 1.0
	if strings.HasSuffix(text, "k") || strings.HasSuffix(text, "K") {
		multiplier = 1000
		text = strings.TrimSuffix(strings.TrimSuffix(text, "k"), "K")
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0
	}
	return int(f * multiplier)
}
