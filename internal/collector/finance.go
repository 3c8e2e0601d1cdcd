package collector

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/araddon/dateparse"
)

const wallstreetcnAPI = "https://api-one.wallstcn.com/apiv1/content"

type wallstreetcnArticle struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	ContentText string `json:"content_text"`
	DisplayTime int64  `json:"display_time"`
	URI         string `json:"uri"`
	Type        string `json:"type"`
}

func (a wallstreetcnArticle) item() Item {
	title := a.Title
	if title == "" {
		title = strings.TrimSpace(a.ContentText)
	}
	return Item{
		ID:          strconv.FormatInt(a.ID, 10),
		Title:       title,
		URL:         a.URI,
		PublishedAt: unixMillis(a.DisplayTime),
	}
}

func (c *Collector) fetchWallstreetcnQuick(ctx context.Context) ([]Item, error) {
	var res struct {
		Data struct {
			Items []wallstreetcnArticle `json:"items"`
		} `json:"data"`
	}
	if err := c.getJSON(ctx, wallstreetcnAPI+"/lives?channel=global-channel&limit=30", nil, &res); err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(res.Data.Items))
	for _, a := range res.Data.Items {
		items = append(items, a.item())
	}
	return items, nil
}

func (c *Collector) fetchWallstreetcnNews(ctx context.Context) ([]Item, error) {
	var res struct {
		Data struct {
			Items []struct {
				ResourceType string              `json:"resource_type"`
				Resource     wallstreetcnArticle `json:"resource"`
			} `json:"items"`
		} `json:"data"`
	}
	if err := c.getJSON(ctx, wallstreetcnAPI+"/information-flow?channel=global-channel&accept=article&limit=30", nil, &res); err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(res.Data.Items))
	for _, e := range res.Data.Items {
		// 专题、广告、快讯不属于资讯流
		if e.ResourceType == "theme" || e.ResourceType == "ad" || e.Resource.Type == "live" || e.Resource.URI == "" {
			continue
		}
		items = append(items, e.Resource.item())
	}
	return items, nil
}

func (c *Collector) fetchWallstreetcnHot(ctx context.Context) ([]Item, error) {
	var res struct {
		Data struct {
			DayItems []wallstreetcnArticle `json:"day_items"`
		} `json:"data"`
	}
	if err := c.getJSON(ctx, wallstreetcnAPI+"/articles/hot?period=all", nil, &res); err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(res.Data.DayItems))
	for _, a := range res.Data.DayItems {
		it := a.item()
		it.PublishedAt = nil
		items = append(items, it)
	}
	return items, nil
}

type clsArticle struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Brief string `json:"brief"`
	Ctime int64  `json:"ctime"`
	IsAd  int    `json:"is_ad"`
}

func (a clsArticle) item() Item {
	title := a.Title
	if title == "" {
		title = a.Brief
	}
	id := strconv.FormatInt(a.ID, 10)
	return Item{
		ID:          id,
		Title:       title,
		URL:         "https://www.cls.cn/detail/" + id,
		PublishedAt: unixMillis(a.Ctime),
	}
}

// clsURL 给查询参数追加签名：md5(sha1(按键排序的查询串))
func clsURL(base string) string {
	q := url.Values{
		"appName": {"CailianpressWeb"},
		"os":      {"web"},
		"sv":      {"7.7.5"},
	}
	s1 := sha1.Sum([]byte(q.Encode()))
	s2 := md5.Sum([]byte(hex.EncodeToString(s1[:])))
	q.Set("sign", hex.EncodeToString(s2[:]))
	return base + "?" + q.Encode()
}

func (c *Collector) fetchClsTelegraph(ctx context.Context) ([]Item, error) {
	var res struct {
		Data struct {
			RollData []clsArticle `json:"roll_data"`
		} `json:"data"`
	}
	if err := c.getJSON(ctx, clsURL("https://www.cls.cn/nodeapi/updateTelegraphList"), nil, &res); err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(res.Data.RollData))
	for _, a := range res.Data.RollData {
		if a.IsAd != 0 {
			continue
		}
		items = append(items, a.item())
	}
	return items, nil
}

func (c *Collector) fetchClsDepth(ctx context.Context) ([]Item, error) {
	var res struct {
		Data struct {
			DepthList []clsArticle `json:"depth_list"`
		} `json:"data"`
	}
	if err := c.getJSON(ctx, clsURL("https://www.cls.cn/v3/depth/home/assembled/1000"), nil, &res); err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(res.Data.DepthList))
	for _, a := range res.Data.DepthList {
		items = append(items, a.item())
	}
	sortByPubDate(items)
	return items, nil
}

func (c *Collector) fetchClsHot(ctx context.Context) ([]Item, error) {
	var res struct {
		Data []clsArticle `json:"data"`
	}
	if err := c.getJSON(ctx, clsURL("https://www.cls.cn/v2/article/hot/list"), nil, &res); err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(res.Data))
	for _, a := range res.Data {
		it := a.item()
		it.PublishedAt = nil
		items = append(items, it)
	}
	return items, nil
}

// fetchXueqiuHotStock 行情接口需要先访问首页拿到会话 Cookie
func (c *Collector) fetchXueqiuHotStock(ctx context.Context) ([]Item, error) {
	_, resp, err := c.fetchRaw(ctx, "https://xueqiu.com/hq", nil)
	if err != nil {
		return nil, fmt.Errorf("bootstrap cookie: %w", err)
	}
	var cookies []string
	for _, ck := range resp.Cookies() {
		cookies = append(cookies, ck.Name+"="+ck.Value)
	}

	var res struct {
		Data struct {
			Items []struct {
				Code     string  `json:"code"`
				Name     string  `json:"name"`
				Percent  float64 `json:"percent"`
				Exchange string  `json:"exchange"`
				Ad       int     `json:"ad"`
			} `json:"items"`
		} `json:"data"`
	}
	header := map[string]string{"Cookie": strings.Join(cookies, "; ")}
	if err := c.getJSON(ctx, "https://stock.xueqiu.com/v5/stock/hot_stock/list.json?size=30&_type=10&type=10", header, &res); err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(res.Data.Items))
	for _, s := range res.Data.Items {
		if s.Ad != 0 || s.Code == "" {
			continue
		}
		items = append(items, Item{
			ID:    s.Code,
			Title: s.Name,
			URL:   "https://xueqiu.com/s/" + s.Code,
			Extra: newExtra(ExtraInfo, fmt.Sprintf("%.2f%% %s", s.Percent, s.Exchange)),
		})
	}
	return items, nil
}

var (
	reJin10Array = regexp.MustCompile(`(?s)var\s+newest\s*=\s*(\[.*\])\s*;?\s*$`)
	reJin10Title = regexp.MustCompile(`(?s)^【([^】]*)】(.*)$`)
	reBoldTag    = regexp.MustCompile(`</?b>`)
)

// fetchJin10 快讯数据以 JS 变量的形式下发
func (c *Collector) fetchJin10(ctx context.Context) ([]Item, error) {
	u := "https://www.jin10.com/flash_newest.js?t=" + strconv.FormatInt(c.now().UnixMilli(), 10)
	body, err := c.getBody(ctx, u, nil)
	if err != nil {
		return nil, err
	}
	m := reJin10Array.FindSubmatch(body)
	if m == nil {
		return nil, fmt.Errorf("%w: newest array not found", ErrSchemaChanged)
	}
	var list []struct {
		ID        string `json:"id"`
		Time      string `json:"time"`
		Important int    `json:"important"`
		Channel   []int  `json:"channel"`
		Data      struct {
			Title   string `json:"title"`
			Content string `json:"content"`
		} `json:"data"`
	}
	if err := decodeLoose(m[1], &list); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaChanged, err)
	}

	items := make([]Item, 0, len(list))
	for _, e := range list {
		text := e.Data.Title
		if text == "" {
			text = e.Data.Content
		}
		if text == "" || slices.Contains(e.Channel, 5) {
			continue
		}
		text = strings.TrimSpace(reBoldTag.ReplaceAllString(text, ""))
		title, hover := text, ""
		if mm := reJin10Title.FindStringSubmatch(text); mm != nil {
			title, hover = mm[1], strings.TrimSpace(mm[2])
		}
		info := ""
		if e.Important != 0 {
			info = "✰"
		}
		it := Item{
			ID:    e.ID,
			Title: title,
			URL:   "https://flash.jin10.com/detail/" + e.ID,
			Extra: newExtra(ExtraInfo, info, ExtraHover, hover),
		}
		if t, err := dateparse.ParseIn(e.Time, shanghai); err == nil {
			it.PublishedAt = millis(t)
		}
		items = append(items, it)
	}
	return items, nil
}

