package column

import "strings"

// Rule 是一个确定性的重排原语，输入输出都是数据源 ID 列表，不修改入参
type Rule interface {
	Apply(ids []string) []string
}

// Pipeline 按声明顺序依次应用规则
type Pipeline []Rule

func (p Pipeline) Apply(ids []string) []string {
	out := clone(ids)
	for _, r := range p {
		out = r.Apply(out)
	}
	return out
}

// PreferredFirst 把存在的优先 ID 按其自身顺序提到最前
type PreferredFirst struct {
	IDs []string
}

func (r PreferredFirst) Apply(ids []string) []string {
	head := present(r.IDs, ids)
	return append(head, without(ids, head)...)
}

// PreferredLast 把存在的 ID 按其自身顺序放到最后
type PreferredLast struct {
	IDs []string
}

func (r PreferredLast) Apply(ids []string) []string {
	tail := present(r.IDs, ids)
	return append(without(ids, tail), tail...)
}

// AnchorInsertion 把 IDs 从原位置取出，插到 Anchor 之后；Anchor 不存在时追加到末尾
type AnchorInsertion struct {
	Anchor string
	IDs    []string
}

func (r AnchorInsertion) Apply(ids []string) []string {
	moved := present(r.IDs, ids)
	if len(moved) == 0 {
		return clone(ids)
	}
	rest := without(ids, moved)
	at := indexOf(rest, r.Anchor)
	if at < 0 {
		return append(rest, moved...)
	}
	out := make([]string, 0, len(ids))
	out = append(out, rest[:at+1]...)
	out = append(out, moved...)
	return append(out, rest[at+1:]...)
}

// GroupAdjacency 把前缀为 Move 的一组 ID 整体移到前缀为 Before 的组第一次出现的位置之前；
// Before 组不存在时保持原样
type GroupAdjacency struct {
	Move   string
	Before string
}

func (r GroupAdjacency) Apply(ids []string) []string {
	var group, rest []string
	for _, id := range ids {
		if strings.HasPrefix(id, r.Move) {
			group = append(group, id)
		} else {
			rest = append(rest, id)
		}
	}
	if len(group) == 0 {
		return clone(ids)
	}
	at := -1
	for i, id := range rest {
		if strings.HasPrefix(id, r.Before) {
			at = i
			break
		}
	}
	if at < 0 {
		return clone(ids)
	}
	out := make([]string, 0, len(ids))
	out = append(out, rest[:at]...)
	out = append(out, group...)
	return append(out, rest[at:]...)
}

// present 返回 want 中出现在 ids 里的元素，保持 want 的顺序
func present(want, ids []string) []string {
	out := make([]string, 0, len(want))
	for _, id := range want {
		if indexOf(ids, id) >= 0 && indexOf(out, id) < 0 {
			out = append(out, id)
		}
	}
	return out
}

func without(ids, drop []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if indexOf(drop, id) < 0 {
			out = append(out, id)
		}
	}
	return out
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func clone(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}
