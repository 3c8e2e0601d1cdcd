package collector

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"
)

// fakeWeb 把所有出站请求改写到本地测试服务器，按 "host/path" 分发
type fakeWeb struct {
	t      *testing.T
	srv    *httptest.Server
	mu     sync.Mutex
	routes map[string]http.HandlerFunc
	hits   map[string]int
}

func newFakeWeb(t *testing.T) *fakeWeb {
	t.Helper()
	fw := &fakeWeb{t: t, routes: map[string]http.HandlerFunc{}, hits: map[string]int{}}
	fw.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-Original-Host") + r.URL.Path
		fw.mu.Lock()
		h, ok := fw.routes[key]
		fw.hits[key]++
		fw.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
	t.Cleanup(fw.srv.Close)
	return fw
}

func (fw *fakeWeb) handle(hostPath string, h http.HandlerFunc) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	fw.routes[hostPath] = h
}

func (fw *fakeWeb) serve(hostPath, contentType, body string) {
	fw.handle(hostPath, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write([]byte(body))
	})
}

func (fw *fakeWeb) count(hostPath string) int {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.hits[hostPath]
}

func (fw *fakeWeb) RoundTrip(req *http.Request) (*http.Response, error) {
	target, _ := url.Parse(fw.srv.URL)
	out := req.Clone(req.Context())
	out.Header.Set("X-Original-Host", req.URL.Host)
	out.URL.Scheme = target.Scheme
	out.URL.Host = target.Host
	out.Host = target.Host
	return http.DefaultTransport.RoundTrip(out)
}

func (fw *fakeWeb) client() *http.Client {
	return &http.Client{Transport: fw, Timeout: 5 * time.Second}
}

// newTestCollector 返回固定时钟的采集器
func newTestCollector(fw *fakeWeb, now time.Time) *Collector {
	c := New(fw.client(), nil)
	c.Now = func() time.Time { return now }
	return c
}
