package video

import (
	"math"
	"strconv"
	"strings"

	"github.com/jaydheshiv/uyir-sub000/internal/model"
)

// ExtractProgress 把形态各异的进度编码归一到0-100。
// 支持 "a/b" 比值、[0,1]小数、以及现成的百分数，最终截断到[0,100]。
// 没有任何候选能算出有限数字时返回nil。
func ExtractProgress(p model.VideoChatPayload) *float64 {
	for _, path := range model.ProgressAliases {
		v, ok := p.Lookup(path)
		if !ok {
			continue
		}
		if pct, ok := normalizeProgress(v); ok {
			return &pct
		}
	}
	return nil
}

func normalizeProgress(v interface{}) (float64, bool) {
	var n float64
	alreadyPercent := false

	switch val := v.(type) {
	case float64:
		n = val
	case string:
		parsed, isRatio, ok := parseProgressString(val)
		if !ok {
			return 0, false
		}
		n = parsed
		// 比值写法算出来的本身就是百分数，不再按小数放大
		alreadyPercent = isRatio
	default:
		return 0, false
	}

	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}

	// [0,1]区间按小数比例放大
	if !alreadyPercent && n > 0 && n <= 1 {
		n *= 100
	}

	return clampProgress(n), true
}

func parseProgressString(s string) (value float64, isRatio bool, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false, false
	}

	// "a/b" 比值写法
	if idx := strings.Index(s, "/"); idx > 0 {
		a, errA := strconv.ParseFloat(strings.TrimSpace(s[:idx]), 64)
		b, errB := strconv.ParseFloat(strings.TrimSpace(s[idx+1:]), 64)
		if errA != nil || errB != nil || b == 0 {
			return 0, false, false
		}
		return a / b * 100, true, true
	}

	trimmed := strings.TrimSuffix(s, "%")
	n, err := strconv.ParseFloat(strings.TrimSpace(trimmed), 64)
	if err != nil {
		return 0, false, false
	}
	// 带百分号的值同样不再放大
	return n, trimmed != s, true
}

func clampProgress(n float64) float64 {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
