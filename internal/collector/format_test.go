package collector

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestFormatCount(t *testing.T) {
	cases := []struct {
		n    int64
		want string
	}{
		{0, "0"},
		{9999, "9999"},
		{10000, "1w+"},
		{25999, "2w+"},
		{1234567, "123w+"},
	}
	for _, c := range cases {
		if got := formatCount(c.n); got != c.want {
			t.Fatalf("formatCount(%d) = %q, want %q", c.n, got, c.want)
		}
	}
}

func TestParseRelativeDate(t *testing.T) {
	now := time.Date(2024, 5, 20, 12, 0, 0, 0, shanghai)
	cases := []struct {
		text string
		want time.Time
	}{
		{"刚刚", now},
		{"3分钟前", now.Add(-3 * time.Minute)},
		{"2小时前", now.Add(-2 * time.Hour)},
		{"1天前", now.AddDate(0, 0, -1)},
		{"5 minutes ago", now.Add(-5 * time.Minute)},
		{"an hour ago", now.Add(-time.Hour)},
		{"昨天 10:20", time.Date(2024, 5, 19, 10, 20, 0, 0, shanghai)},
		{"前天", now.AddDate(0, 0, -2)},
		{"05-18 08:00", time.Date(2024, 5, 18, 8, 0, 0, 0, shanghai)},
		{"09:15", time.Date(2024, 5, 20, 9, 15, 0, 0, shanghai)},
		{"2024-05-01 09:30:00", time.Date(2024, 5, 1, 9, 30, 0, 0, shanghai)},
	}
	for _, c := range cases {
		got, ok := parseRelativeDate(c.text, shanghai, now)
		if !ok {
			t.Fatalf("parseRelativeDate(%q) not recognised", c.text)
		}
		if !got.Equal(c.want) {
			t.Fatalf("parseRelativeDate(%q) = %v, want %v", c.text, got, c.want)
		}
	}

	if _, ok := parseRelativeDate("", shanghai, now); ok {
		t.Fatalf("empty text should not parse")
	}
	if _, ok := parseRelativeDate("not a date at all", shanghai, now); ok {
		t.Fatalf("garbage should not parse")
	}
}

func TestParseRelativeDateAcrossYear(t *testing.T) {
	now := time.Date(2024, 1, 2, 8, 0, 0, 0, shanghai)
	got, ok := parseRelativeDate("12-31 23:00", shanghai, now)
	if !ok {
		t.Fatalf("expected month-day form to parse")
	}
	if want := time.Date(2023, 12, 31, 23, 0, 0, 0, shanghai); !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestFirstValidStopsAtFirstNonEmpty(t *testing.T) {
	var calls []string
	try := func(_ context.Context, c string) ([]string, error) {
		calls = append(calls, c)
		switch c {
		case "a":
			return nil, errors.New("boom")
		case "b":
			return nil, nil
		default:
			return []string{c}, nil
		}
	}

	got, err := firstValid(context.Background(), []string{"a", "b", "c", "d"}, try)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"c"}) {
		t.Fatalf("got %v, want [c]", got)
	}
	if !reflect.DeepEqual(calls, []string{"a", "b", "c"}) {
		t.Fatalf("candidates tried %v, want [a b c]", calls)
	}
}

func TestFirstValidJoinsErrors(t *testing.T) {
	_, err := firstValid(context.Background(), []string{"x", "y"}, func(_ context.Context, c string) ([]int, error) {
		if c == "x" {
			return nil, &StatusError{URL: c, Code: 502}
		}
		return []int{}, nil
	})
	if err == nil {
		t.Fatalf("expected error when every candidate fails")
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Code != 502 {
		t.Fatalf("expected joined StatusError, got %v", err)
	}
	if !errors.Is(err, ErrEmptyResult) {
		t.Fatalf("expected joined ErrEmptyResult, got %v", err)
	}
	if !strings.Contains(err.Error(), "x:") || !strings.Contains(err.Error(), "y:") {
		t.Fatalf("error should name every candidate: %v", err)
	}
}

func TestDecodeLoose(t *testing.T) {
	var v struct {
		Code int `json:"code"`
	}
	if err := decodeLoose([]byte(` {"code": 3} `), &v); err != nil || v.Code != 3 {
		t.Fatalf("structured body: code=%d err=%v", v.Code, err)
	}
	v.Code = 0
	if err := decodeLoose([]byte(`"{\"code\": 7}"`), &v); err != nil || v.Code != 7 {
		t.Fatalf("string-wrapped body: code=%d err=%v", v.Code, err)
	}
	if err := decodeLoose([]byte(`  `), &v); !errors.Is(err, ErrSchemaChanged) {
		t.Fatalf("empty body should be a schema error, got %v", err)
	}
}

func TestResolveURL(t *testing.T) {
	if got := resolveURL("https://www.36kr.com/newsflashes", "/newsflashes/123"); got != "https://www.36kr.com/newsflashes/123" {
		t.Fatalf("resolveURL relative = %q", got)
	}
	if got := resolveURL("https://a.com", "javascript:void(0)"); got != "" {
		t.Fatalf("non-http link should be rejected, got %q", got)
	}
	if got := encodeComponent("a b&c"); got != "a%20b%26c" {
		t.Fatalf("encodeComponent = %q", got)
	}
}

func TestResolveRef(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{"Item:1", "Item:1"},
		{map[string]any{"id": "Item:2", "type": "id"}, "Item:2"},
		{map[string]any{"__ref": "Item:3"}, "Item:3"},
		{map[string]any{"other": 1}, ""},
		{nil, ""},
	}
	for _, c := range cases {
		if got := resolveRef(c.in); got != c.want {
			t.Fatalf("resolveRef(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestExtractStatePatterns(t *testing.T) {
	cases := []struct {
		name    string
		html    string
		wantErr bool
		wantKey string
	}{
		{"bad json", `<script>window.__APOLLO_STATE__ = {bad json};</script>`, true, ""},
		{"self assignment", `<script>self.__APOLLO_STATE__={"k":1};</script>`, false, "k"},
		{"no closing script", `window.__APOLLO_STATE__={"k":{"v":2}};(function(){})()`, false, "k"},
	}
	for _, c := range cases {
		state, err := extractState(c.html, apolloStatePatterns)
		if c.wantErr {
			if !errors.Is(err, ErrSchemaChanged) || !strings.Contains(err.Error(), "not valid json") {
				t.Fatalf("%s: expected descriptive schema error, got %v", c.name, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: unexpected error %v", c.name, err)
		}
		if _, ok := state[c.wantKey]; !ok {
			t.Fatalf("%s: key %q missing in %v", c.name, c.wantKey, state)
		}
	}
}
