// Package datefmt 负责任务时间字段的展示格式化与输入解析。
package datefmt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DisplayLayout 是所有时间字段对外输出的格式（本地时区）。
const DisplayLayout = "02-01-2006 15:04"

var displayPattern = regexp.MustCompile(`^(\d{2})-(\d{2})-(\d{4})\s+(\d{2}):(\d{2})(?::(\d{2}))?$`)

// fallbackLayouts 非 DD-MM-YYYY 输入按顺序尝试的通用格式。
var fallbackLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Format 把时间格式化为 DD-MM-YYYY HH:mm（本地时区），nil 原样返回 nil。
func Format(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := t.In(time.Local).Format(DisplayLayout)
	return &s
}

// FormatTime 同 Format，用于非指针字段（created_at / updated_at）。
func FormatTime(t time.Time) *string {
	return Format(&t)
}

// Parse 解析用户输入的日期字符串。
//
// 匹配 DD-MM-YYYY HH:mm[:ss] 时按本地时区逐字段构造；
// 其他非空字符串按通用格式解析；空字符串返回 nil。
func Parse(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	if m := displayPattern.FindStringSubmatch(raw); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		hour, _ := strconv.Atoi(m[4])
		minute, _ := strconv.Atoi(m[5])
		second := 0
		if m[6] != "" {
			second, _ = strconv.Atoi(m[6])
		}
		t := time.Date(year, time.Month(month), day, hour, minute, second, 0, time.Local)
		return &t, nil
	}

	for _, layout := range fallbackLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognized date %q", raw)
}
