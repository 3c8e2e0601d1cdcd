package registry

import (
	_ "embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed sources.yaml
var builtinSources []byte

// 未声明 interval 的数据源默认轮询周期
const defaultInterval = 30 * time.Minute

// Descriptor 描述一个已注册的数据源，进程启动后只读
type Descriptor struct {
	ID     string `yaml:"id" json:"id"`
	Name   string `yaml:"name" json:"name"`
	Title  string `yaml:"title,omitempty" json:"title,omitempty"`
	Column string `yaml:"column,omitempty" json:"column,omitempty"`
	// Type 用于跨栏目的聚合，例如 hottest / realtime
	Type string `yaml:"type,omitempty" json:"type,omitempty"`
	Home string `yaml:"home,omitempty" json:"home,omitempty"`
	// Redirect 非空表示旧 ID，已合并到目标 ID
	Redirect string `yaml:"redirect,omitempty" json:"redirect,omitempty"`

	IntervalRaw string        `yaml:"interval,omitempty" json:"-"`
	Interval    time.Duration `yaml:"-" json:"interval"`
}

// DisplayName 返回 "名称 标题" 形式的展示名
func (d Descriptor) DisplayName() string {
	if d.Title == "" {
		return d.Name
	}
	return d.Name + " " + d.Title
}

// Registry 保存全部数据源描述，保留注册顺序
type Registry struct {
	order []string
	byID  map[string]Descriptor
}

// Default 返回内置的数据源注册表
func Default() *Registry {
	r, err := Load(builtinSources)
	if err != nil {
		panic(fmt.Sprintf("registry: builtin sources invalid: %v", err))
	}
	return r
}

// Load 从 YAML 列表构建注册表，并校验 ID 唯一、重定向目标存在且不是二次重定向
func Load(data []byte) (*Registry, error) {
	var list []Descriptor
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("registry: parse yaml: %w", err)
	}
	return New(list)
}

// New 从描述列表构建注册表
func New(list []Descriptor) (*Registry, error) {
	r := &Registry{
		order: make([]string, 0, len(list)),
		byID:  make(map[string]Descriptor, len(list)),
	}
	for _, d := range list {
		if d.ID == "" {
			return nil, fmt.Errorf("registry: descriptor without id (name=%q)", d.Name)
		}
		if _, dup := r.byID[d.ID]; dup {
			return nil, fmt.Errorf("registry: duplicate id %q", d.ID)
		}
		if d.Interval == 0 {
			d.Interval = defaultInterval
			if d.IntervalRaw != "" {
				iv, err := time.ParseDuration(d.IntervalRaw)
				if err != nil {
					return nil, fmt.Errorf("registry: %s: bad interval %q: %w", d.ID, d.IntervalRaw, err)
				}
				d.Interval = iv
			}
		}
		r.order = append(r.order, d.ID)
		r.byID[d.ID] = d
	}
	for _, id := range r.order {
		d := r.byID[id]
		if d.Redirect == "" {
			continue
		}
		target, ok := r.byID[d.Redirect]
		if !ok {
			return nil, fmt.Errorf("registry: %s redirects to unknown id %q", id, d.Redirect)
		}
		if target.Redirect != "" {
			return nil, fmt.Errorf("registry: %s redirects to %s which is itself a redirect", id, target.ID)
		}
	}
	return r, nil
}

// Get 按 ID 查找描述
func (r *Registry) Get(id string) (Descriptor, bool) {
	d, ok := r.byID[id]
	return d, ok
}

// Exists 判断 ID 是否已注册（包含重定向别名）
func (r *Registry) Exists(id string) bool {
	_, ok := r.byID[id]
	return ok
}

// Resolve 将别名解析到规范 ID，只解析一跳；未注册的 ID 原样返回
func (r *Registry) Resolve(id string) string {
	if d, ok := r.byID[id]; ok && d.Redirect != "" {
		return d.Redirect
	}
	return id
}

// All 按注册顺序返回全部描述
func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// IDs 按注册顺序返回全部 ID
func (r *Registry) IDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Canonical 返回所有非重定向的描述
func (r *Registry) Canonical() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, id := range r.order {
		if d := r.byID[id]; d.Redirect == "" {
			out = append(out, d)
		}
	}
	return out
}
