package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	maxBodyBytes     = 4 << 20 // 4MB，防止超大响应
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36"
)

var (
	// ErrEmptyResult 请求成功但没有解析出任何条目，多半是页面结构变了
	ErrEmptyResult = errors.New("empty result")
	// ErrSchemaChanged 响应缺少预期的结构或字段
	ErrSchemaChanged = errors.New("schema changed")
)

// StatusError 表示源站返回了非 2xx 状态
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.Code)
}

// fetchRaw 发起 GET 请求并读完响应体，返回的 resp.Body 已关闭
func (c *Collector) fetchRaw(ctx context.Context, rawURL string, header map[string]string) ([]byte, *http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := c.client().Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp, &StatusError{URL: rawURL, Code: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp, fmt.Errorf("read %s: %w", rawURL, err)
	}
	return body, resp, nil
}

func (c *Collector) getBody(ctx context.Context, rawURL string, header map[string]string) ([]byte, error) {
	body, _, err := c.fetchRaw(ctx, rawURL, header)
	return body, err
}

// getJSON 请求并解码 JSON，兼容被包成字符串的 JSON
func (c *Collector) getJSON(ctx context.Context, rawURL string, header map[string]string, v any) error {
	body, err := c.getBody(ctx, rawURL, header)
	if err != nil {
		return err
	}
	if err := decodeLoose(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", rawURL, err)
	}
	return nil
}

// decodeLoose 源站的 Content-Type 并不可靠，有时返回的是一段 JSON 字符串
func decodeLoose(body []byte, v any) error {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '"' {
		var inner string
		if err := json.Unmarshal(body, &inner); err != nil {
			return err
		}
		body = []byte(strings.TrimSpace(inner))
	}
	if len(body) == 0 {
		return fmt.Errorf("%w: empty body", ErrSchemaChanged)
	}
	return json.Unmarshal(body, v)
}

// firstValid 依次尝试候选地址，第一个非空结果胜出；全部失败时返回合并后的错误
func firstValid[T any](ctx context.Context, candidates []string, try func(ctx context.Context, candidate string) ([]T, error)) ([]T, error) {
	var errs []error
	for _, cand := range candidates {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		out, err := try(ctx, cand)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", cand, err))
			continue
		}
		if len(out) == 0 {
			errs = append(errs, fmt.Errorf("%s: %w", cand, ErrEmptyResult))
			continue
		}
		return out, nil
	}
	if len(errs) == 0 {
		return nil, ErrEmptyResult
	}
	return nil, errors.Join(errs...)
}

func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// resolveURL 将相对链接补全为绝对地址，无法补全时返回空串
func resolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	abs := b.ResolveReference(ref).String()
	if !isAbsoluteURL(abs) {
		return ""
	}
	return abs
}

// encodeComponent 与浏览器 encodeURIComponent 一致，空格编码为 %20
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
