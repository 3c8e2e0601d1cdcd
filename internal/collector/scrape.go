package collector

import (
	"context"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
)

// ctxTransport 让 colly 的请求跟随调用方的 ctx 取消
type ctxTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t ctxTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.base.RoundTrip(req.WithContext(t.ctx))
}

// newScraper 创建共享 Collector HTTP 传输层的 colly 采集器
func (c *Collector) newScraper(ctx context.Context, domains ...string) *colly.Collector {
	sc := colly.NewCollector(
		colly.AllowedDomains(domains...),
		colly.UserAgent(defaultUserAgent),
	)
	timeout := 10 * time.Second
	base := http.DefaultTransport
	if cl := c.client(); cl != nil {
		if cl.Transport != nil {
			base = cl.Transport
		}
		if cl.Timeout > 0 {
			timeout = cl.Timeout
		}
	}
	sc.SetRequestTimeout(timeout)
	sc.WithTransport(ctxTransport{ctx: ctx, base: base})
	return sc
}
