package transform

import (
	"sync"

	"excel2dataverse/internal/domain"
)

// Cleaner 把一行原始数据转换成目标表期望的形态。
type Cleaner interface {
	Clean(row domain.Row) domain.Row
}

// CleanerFunc 让普通函数实现 Cleaner。
type CleanerFunc func(row domain.Row) domain.Row

func (f CleanerFunc) Clean(row domain.Row) domain.Row { return f(row) }

// Derived 从 Source 列按布尔规则派生 Target 列，Source 列保留。
type Derived struct {
	Target string
	Source string
}

// Rules 是声明式的清洗规则，按顺序执行：列名规范化、布尔、日期、重命名、派生。
type Rules struct {
	BoolFields []string
	DateFields []string
	Renames    map[string]string
	Derived    []Derived
}

// Clean 实现 Cleaner。规则中不存在于行内的列直接跳过。
func (r Rules) Clean(row domain.Row) domain.Row {
	out := NormalizeColumns(row)
	for _, field := range r.BoolFields {
		if v, ok := out[field]; ok {
			out[field] = CleanBool(v)
		}
	}
	for _, field := range r.DateFields {
		if v, ok := out[field]; ok {
			out[field] = CleanDate(v)
		}
	}
	for from, to := range r.Renames {
		v, ok := out[from]
		if !ok {
			continue
		}
		delete(out, from)
		out[to] = v
	}
	for _, d := range r.Derived {
		if v, ok := out[d.Source]; ok {
			out[d.Target] = CleanBool(v)
		}
	}
	return out
}

// Registry 维护实体 key -> Cleaner 的映射，未注册的实体只做列名规范化。
type Registry struct {
	mu       sync.RWMutex
	cleaners map[string]Cleaner
	fallback Cleaner
}

// NewRegistry 创建空注册表。
func NewRegistry() *Registry {
	return &Registry{
		cleaners: make(map[string]Cleaner),
		fallback: Rules{},
	}
}

// Register 为实体注册清洗策略，重复注册会覆盖。
func (r *Registry) Register(entity string, c Cleaner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleaners[entity] = c
}

// Lookup 返回实体的清洗策略，未注册时返回默认策略。
func (r *Registry) Lookup(entity string) Cleaner {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.cleaners[entity]; ok {
		return c
	}
	return r.fallback
}

// Clean 使用实体对应的策略清洗一行。
func (r *Registry) Clean(entity string, row domain.Row) domain.Row {
	return r.Lookup(entity).Clean(row)
}
