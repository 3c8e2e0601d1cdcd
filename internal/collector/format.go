package collector

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// shanghai 是国内站点的默认时区
var shanghai = loadLocation("Asia/Shanghai", 8*60*60)

func loadLocation(name string, offset int) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("CST", offset)
	}
	return loc
}

// formatCount 将播放量、点赞数等格式化为紧凑形式：一万及以上显示为 "Nw+"
func formatCount(n int64) string {
	if n >= 10000 {
		return strconv.FormatInt(n/10000, 10) + "w+"
	}
	return strconv.FormatInt(n, 10)
}

var (
	reAgoZh     = regexp.MustCompile(`(\d+)\s*(秒|分钟|分|小时|天|周|个月|月|年)前`)
	reAgoEn     = regexp.MustCompile(`(?i)(\d+|an?)\s*(second|sec|minute|min|hour|hr|day|week|month|year)s?\s+ago`)
	reDayClock  = regexp.MustCompile(`(今天|昨天|前天)\s*(?:(\d{1,2}):(\d{2}))?`)
	reMonthDay  = regexp.MustCompile(`^(\d{1,2})[-/月](\d{1,2})日?\s+(\d{1,2}):(\d{2})$`)
	reClockOnly = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
)

// parseRelativeDate 把页面上的相对时间（"3小时前"、"昨天 10:20"、"5 minutes ago"）换算成 loc 时区下的绝对时间。
// 都不匹配时交给 dateparse 按 loc 解析绝对日期。
func parseRelativeDate(text string, loc *time.Location, now time.Time) (time.Time, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = shanghai
	}
	now = now.In(loc)

	switch text {
	case "刚刚", "just now", "now":
		return now, true
	}

	if m := reAgoZh.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return shift(now, n, zhUnits[m[2]]), true
	}
	if m := reAgoEn.FindStringSubmatch(text); m != nil {
		n := 1
		if v, err := strconv.Atoi(m[1]); err == nil {
			n = v
		}
		return shift(now, n, enUnits[strings.ToLower(m[2])]), true
	}
	if m := reDayClock.FindStringSubmatch(text); m != nil {
		back := map[string]int{"今天": 0, "昨天": 1, "前天": 2}[m[1]]
		d := now.AddDate(0, 0, -back)
		if m[2] == "" {
			return d, true
		}
		h, _ := strconv.Atoi(m[2])
		mi, _ := strconv.Atoi(m[3])
		return time.Date(d.Year(), d.Month(), d.Day(), h, mi, 0, 0, loc), true
	}
	if m := reMonthDay.FindStringSubmatch(text); m != nil {
		mo, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		h, _ := strconv.Atoi(m[3])
		mi, _ := strconv.Atoi(m[4])
		t := time.Date(now.Year(), time.Month(mo), day, h, mi, 0, 0, loc)
		// 跨年：12 月的条目在 1 月看到
		if t.After(now.Add(24 * time.Hour)) {
			t = t.AddDate(-1, 0, 0)
		}
		return t, true
	}
	if m := reClockOnly.FindStringSubmatch(text); m != nil {
		h, _ := strconv.Atoi(m[1])
		mi, _ := strconv.Atoi(m[2])
		return time.Date(now.Year(), now.Month(), now.Day(), h, mi, 0, 0, loc), true
	}

	t, err := dateparse.ParseIn(text, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

type unit int

const (
	unitSecond unit = iota
	unitMinute
	unitHour
	unitDay
	unitWeek
	unitMonth
	unitYear
)

var zhUnits = map[string]unit{
	"秒": unitSecond, "分钟": unitMinute, "分": unitMinute, "小时": unitHour,
	"天": unitDay, "周": unitWeek, "个月": unitMonth, "月": unitMonth, "年": unitYear,
}

var enUnits = map[string]unit{
	"second": unitSecond, "sec": unitSecond, "minute": unitMinute, "min": unitMinute,
	"hour": unitHour, "hr": unitHour, "day": unitDay, "week": unitWeek,
	"month": unitMonth, "year": unitYear,
}

func shift(now time.Time, n int, u unit) time.Time {
	switch u {
	case unitSecond:
		return now.Add(-time.Duration(n) * time.Second)
	case unitMinute:
		return now.Add(-time.Duration(n) * time.Minute)
	case unitHour:
		return now.Add(-time.Duration(n) * time.Hour)
	case unitDay:
		return now.AddDate(0, 0, -n)
	case unitWeek:
		return now.AddDate(0, 0, -7*n)
	case unitMonth:
		return now.AddDate(0, -n, 0)
	default:
		return now.AddDate(-n, 0, 0)
	}
}
