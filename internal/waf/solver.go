// Package waf 实现 36kr 等站点前置的工作量证明（PoW）挑战：
// 首页脚本中下发 base64 编码的挑战，客户端暴力搜索计数器使 sha256(prefix || 计数器十进制) 等于期望摘要，
// 然后把答案放进 _wafchallengeid Cookie 换取 _waftokenid 会话令牌。
package waf

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultMaxAttempts = 10_000_000
	DefaultTTL         = 5 * time.Minute

	ChallengeCookie = "_wafchallengeid"
	TokenCookie     = "_waftokenid"

	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36"
	maxPageBytes     = 2 << 20
)

var (
	errNoChallenge = errors.New("no challenge payload")
	errUnsolved    = errors.New("challenge not solved within attempt bound")
	errNoToken     = errors.New("no token in response")
)

// 挑战下发格式随部署变化，按顺序尝试；guard 非空时脚本必须包含该片段
var payloadPatterns = []struct {
	re    *regexp.Regexp
	guard string
}{
	{re: regexp.MustCompile(`atob\('(.*?)'\)\),`)},
	{re: regexp.MustCompile(`cs="(.*?)",c`), guard: ChallengeCookie},
}

// Solver 负责单个来源站点的挑战求解与令牌缓存
type Solver struct {
	Client      *http.Client
	Origin      string
	Cache       TokenCache
	MaxAttempts int
	TTL         time.Duration
	UserAgent   string
}

// NewSolver 使用默认的尝试上限与 5 分钟有效期
func NewSolver(client *http.Client, origin string, cache TokenCache) *Solver {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Solver{
		Client:      client,
		Origin:      strings.TrimRight(origin, "/"),
		Cache:       cache,
		MaxAttempts: DefaultMaxAttempts,
		TTL:         DefaultTTL,
		UserAgent:   defaultUserAgent,
	}
}

// Token 返回有效的会话令牌。任何一步失败都只返回 ("", false)，调用方应继续以未认证方式请求。
func (s *Solver) Token(ctx context.Context) (string, bool) {
	if tok, ok := s.Cache.Get(ctx, s.Origin); ok {
		return tok, true
	}
	tok, err := s.acquire(ctx)
	if err != nil {
		log.WithField("origin", s.Origin).Debugf("waf: proceed without token: %v", err)
		return "", false
	}
	s.Cache.Set(ctx, s.Origin, tok, s.TTL)
	return tok, true
}

func (s *Solver) acquire(ctx context.Context) (string, error) {
	payload, err := s.fetchChallenge(ctx)
	if err != nil {
		return "", err
	}
	answer, counter, ok := s.Solve(payload)
	if !ok {
		return "", errUnsolved
	}
	log.WithField("origin", s.Origin).Debugf("waf: challenge solved, counter=%d", counter)
	return s.exchange(ctx, answer)
}

func (s *Solver) fetchChallenge(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.Origin, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", s.UserAgent)
	resp, err := s.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("root page status %d", resp.StatusCode)
	}
	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", err
	}
	var scripts []string
	doc.Find("script").Each(func(_ int, sel *goquery.Selection) {
		scripts = append(scripts, sel.Text())
	})
	payload := ExtractPayload(strings.Join(scripts, "\n"))
	if payload == "" {
		return "", errNoChallenge
	}
	return payload, nil
}

// ExtractPayload 从脚本文本中提取挑战负载，未命中时返回空串（即当前请求未启用挑战）
func ExtractPayload(script string) string {
	for _, p := range payloadPatterns {
		if p.guard != "" && !strings.Contains(script, p.guard) {
			continue
		}
		if m := p.re.FindStringSubmatch(script); len(m) > 1 && m[1] != "" {
			return m[1]
		}
	}
	return ""
}

// Solve 暴力搜索计数器，返回注入答案后的 base64 负载与命中的计数器
func (s *Solver) Solve(payload string) (string, int, bool) {
	limit := s.MaxAttempts
	if limit <= 0 {
		limit = DefaultMaxAttempts
	}
	return solve(payload, limit)
}

func solve(payload string, limit int) (string, int, bool) {
	raw, err := decodeB64(payload)
	if err != nil {
		return "", 0, false
	}
	// 数字保持原样，避免大整数经 float64 变形
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var c map[string]any
	if err := dec.Decode(&c); err != nil {
		return "", 0, false
	}
	v, _ := c["v"].(map[string]any)
	a, _ := v["a"].(string)
	want, _ := v["c"].(string)
	prefix, err := decodeB64(a)
	if err != nil {
		return "", 0, false
	}
	// v.c 是摘要的 base64，按字节比较与按十六进制比较等价
	expect, err := decodeB64(want)
	if err != nil || len(expect) != sha256.Size {
		return "", 0, false
	}

	h := sha256.New()
	var sum [sha256.Size]byte
	buf := make([]byte, 0, 20)
	for i := 0; i < limit; i++ {
		buf = strconv.AppendInt(buf[:0], int64(i), 10)
		h.Reset()
		h.Write(prefix)
		h.Write(buf)
		if bytes.Equal(h.Sum(sum[:0]), expect) {
			c["d"] = base64.StdEncoding.EncodeToString(buf)
			out, err := encodeAnswer(c)
			if err != nil {
				return "", 0, false
			}
			return base64.StdEncoding.EncodeToString(out), i, true
		}
	}
	return "", 0, false
}

// encodeAnswer 不转义 <>&，与浏览器 JSON.stringify 的输出一致
func encodeAnswer(c map[string]any) ([]byte, error) {
	var out bytes.Buffer
	enc := json.NewEncoder(&out)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	return bytes.TrimRight(out.Bytes(), "\n"), nil
}

// exchange 以答案 Cookie 再次请求首页（不跟随跳转），从 Set-Cookie 中取令牌
func (s *Solver) exchange(ctx context.Context, answer string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.Origin, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", s.UserAgent)
	req.Header.Set("Cookie", ChallengeCookie+"="+answer+";")

	client := *s.Client
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxPageBytes))

	for _, ck := range resp.Cookies() {
		if ck.Name == TokenCookie && ck.Value != "" {
			return ck.Value, nil
		}
	}
	return "", errNoToken
}

func decodeB64(s string) ([]byte, error) {
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}
