package collector

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

const kuaishouHomeURL = "https://www.kuaishou.com/?isHome=1"

// 状态注入方式在不同部署间变过几次
var apolloStatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`window\.__APOLLO_STATE__\s*=\s*(\{[\s\S]*?\})\s*;\s*</script>`),
	regexp.MustCompile(`window\.__APOLLO_STATE__\s*=\s*(\{[\s\S]*?\})\s*;`),
	regexp.MustCompile(`self\.__APOLLO_STATE__\s*=\s*(\{[\s\S]*?\})\s*;`),
}

var kuaishouRankKeys = []string{
	`visionHotRank({"page":"home"})`,
	`visionHotRank({"page":"hot"})`,
	`visionHotRank({"page":"index"})`,
}

func (c *Collector) fetchKuaishou(ctx context.Context) ([]Item, error) {
	body, err := c.getBody(ctx, kuaishouHomeURL, nil)
	if err != nil {
		return nil, err
	}
	state, err := extractState(string(body), apolloStatePatterns)
	if err != nil {
		return nil, err
	}
	return kuaishouItems(state)
}

func kuaishouItems(state map[string]any) ([]Item, error) {
	store := asMap(state["defaultClient"])
	rankID := kuaishouRankID(asMap(store["ROOT_QUERY"]))
	if rankID == "" {
		return nil, fmt.Errorf("%w: hot rank reference missing", ErrSchemaChanged)
	}
	refs, _ := asMap(store[rankID])["items"].([]any)
	if len(refs) == 0 {
		return nil, fmt.Errorf("%w: hot rank list empty", ErrSchemaChanged)
	}

	items := make([]Item, 0, len(refs))
	for _, r := range refs {
		ref := resolveRef(r)
		if ref == "" {
			continue
		}
		hot := asMap(store[ref])
		title := firstString(hot, "name", "title", "hotWord", "word")
		if title == "" {
			continue
		}
		// 置顶不是热榜内容
		if hot["tagType"] == "置顶" {
			continue
		}
		id := firstString(hot, "id")
		if id == "" {
			id = ref
		}
		items = append(items, Item{
			ID:    id,
			Title: strings.TrimSpace(title),
			URL:   "https://www.kuaishou.com/search/video?searchKey=" + encodeComponent(title),
			Extra: newExtra(ExtraIcon, firstString(hot, "iconUrl", "icon")),
		})
	}
	return items, nil
}

func kuaishouRankID(rootQuery map[string]any) string {
	for _, k := range kuaishouRankKeys {
		if id := resolveRef(rootQuery[k]); id != "" {
			return id
		}
	}
	keys := make([]string, 0, len(rootQuery))
	for k := range rootQuery {
		if strings.HasPrefix(k, "visionHotRank(") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if id := resolveRef(rootQuery[k]); id != "" {
			return id
		}
	}
	return ""
}
