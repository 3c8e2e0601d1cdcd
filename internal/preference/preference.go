package preference

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/LJTian/NewsNow/internal/column"
	"github.com/LJTian/NewsNow/internal/registry"
)

// 偏好的来源标记
const (
	ActionInit   = "init"
	ActionManual = "manual"
)

// Preference 是客户端持久化的栏目排序快照
type Preference struct {
	Data        map[string][]string `json:"data"`
	Action      string              `json:"action"`
	UpdatedTime int64               `json:"updatedTime"`
}

var errMalformed = errors.New("preference: malformed document")

// Parse 解析并校验持久化文档
func Parse(raw []byte) (Preference, error) {
	var p Preference
	if err := json.Unmarshal(raw, &p); err != nil {
		return Preference{}, fmt.Errorf("%w: %v", errMalformed, err)
	}
	if p.Data == nil {
		return Preference{}, fmt.Errorf("%w: missing data", errMalformed)
	}
	if p.UpdatedTime < 0 {
		return Preference{}, fmt.Errorf("%w: negative updatedTime", errMalformed)
	}
	return p, nil
}

// Reconciler 把客户端保存的旧排序与当前的规范栏目合并
type Reconciler struct {
	reg   *registry.Registry
	fixed map[string][]string
}

// NewReconciler 基于注册表及其推导出的栏目构建
func NewReconciler(reg *registry.Registry, meta column.Metadata) *Reconciler {
	return &Reconciler{reg: reg, fixed: meta.Fixed()}
}

// Default 返回首次加载时使用的默认偏好
func (r *Reconciler) Default() Preference {
	return Preference{Data: copyData(r.fixed), Action: ActionInit, UpdatedTime: 0}
}

// Load 解析持久化文档并合并；文档缺失或无法解析时回退为默认值
func (r *Reconciler) Load(raw []byte) Preference {
	if len(raw) == 0 {
		return r.Default()
	}
	p, err := Parse(raw)
	if err != nil {
		return r.Default()
	}
	p.Action = ActionInit
	return r.Reconcile(p)
}

// Reconcile 对每个固定栏目：
// 旧 ID 先按重定向改写，再丢弃不在规范栏目中的 ID，随后按规范顺序追加新增 ID，最后重新应用栏目的重排规则。
// 关注栏目只做存在性过滤与重定向改写。未知栏目被丢弃，缺失的栏目取默认值。
func (r *Reconciler) Reconcile(p Preference) Preference {
	out := Preference{
		Data:        copyData(r.fixed),
		Action:      p.Action,
		UpdatedTime: p.UpdatedTime,
	}
	for id, stored := range p.Data {
		canonical, ok := r.fixed[id]
		if !ok {
			continue
		}
		if id == column.Focus {
			out.Data[id] = r.rewrite(stored, nil)
			continue
		}
		merged := r.rewrite(stored, canonical)
		for _, s := range canonical {
			if !slices.Contains(merged, s) {
				merged = append(merged, s)
			}
		}
		if spec, ok := column.Lookup(id); ok && len(spec.Rules) > 0 {
			merged = spec.Rules.Apply(merged)
		}
		out.Data[id] = merged
	}
	return out
}

// rewrite 过滤掉未注册的 ID 并做一跳重定向；allowed 非空时只保留其中的 ID，重复项只保留第一次出现
func (r *Reconciler) rewrite(ids, allowed []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !r.reg.Exists(id) {
			continue
		}
		id = r.reg.Resolve(id)
		if allowed != nil && !slices.Contains(allowed, id) {
			continue
		}
		if slices.Contains(out, id) {
			continue
		}
		out = append(out, id)
	}
	return out
}

func copyData(in map[string][]string) map[string][]string {
	out := make(map[string][]string, len(in))
	for k, v := range in {
		out[k] = slices.Clone(v)
		if out[k] == nil {
			out[k] = []string{}
		}
	}
	return out
}
