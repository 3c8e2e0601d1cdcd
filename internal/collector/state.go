package collector

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// extractState 按顺序尝试候选正则，从页面脚本中取出序列化的应用状态
func extractState(html string, patterns []*regexp.Regexp) (map[string]any, error) {
	for _, re := range patterns {
		m := re.FindStringSubmatch(html)
		if len(m) < 2 || m[1] == "" {
			continue
		}
		var state map[string]any
		if err := json.Unmarshal([]byte(m[1]), &state); err != nil {
			return nil, fmt.Errorf("%w: state blob is not valid json: %v", ErrSchemaChanged, err)
		}
		return state, nil
	}
	return nil, fmt.Errorf("%w: no state blob found", ErrSchemaChanged)
}

// resolveRef 取出引用指向的键：可以是字符串本身，也可以是 {id} 或 {__ref} 对象
func resolveRef(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case map[string]any:
		if id, ok := x["id"].(string); ok && id != "" {
			return id
		}
		if ref, ok := x["__ref"].(string); ok && ref != "" {
			return ref
		}
	}
	return ""
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// firstString 返回 m 中第一个非空字符串字段
func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
