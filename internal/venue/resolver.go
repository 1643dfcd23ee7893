package venue

import (
	"strings"
)

// Resolver 静态场地解析：精确 -> 双向子串（不区分大小写）-> 别名 -> nil
// 只读，可并发使用
type Resolver struct {
	records []Record
	exact   map[string]int
	aliases []Alias
}

// Stats 场地表统计
type Stats struct {
	TotalVenues int            `json:"totalVenues"`
	CityCounts  map[string]int `json:"cityCounts"`
}

// NewResolver 使用内置场地表
func NewResolver() *Resolver {
	return NewResolverWithTable(defaultVenues, defaultAliases)
}

// NewResolverWithTable 自定义场地表（测试或扩展用）
func NewResolverWithTable(records []Record, aliases []Alias) *Resolver {
	r := &Resolver{
		records: append([]Record(nil), records...),
		exact:   make(map[string]int, len(records)),
		aliases: append([]Alias(nil), aliases...),
	}
	for i, rec := range r.records {
		if _, dup := r.exact[rec.Name]; !dup {
			r.exact[rec.Name] = i
		}
	}
	return r
}

// Resolve 未命中返回 nil，调用方自行使用默认坐标
func (r *Resolver) Resolve(name string) *Record {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}

	if i, ok := r.exact[name]; ok {
		rec := r.records[i]
		return &rec
	}

	lower := strings.ToLower(name)
	for _, rec := range r.records {
		key := strings.ToLower(rec.Name)
		if strings.Contains(key, lower) || strings.Contains(lower, key) {
			matched := rec
			return &matched
		}
	}

	for _, a := range r.aliases {
		if strings.Contains(lower, strings.ToLower(a.Keyword)) {
			if i, ok := r.exact[a.Venue]; ok {
				rec := r.records[i]
				return &rec
			}
			return nil
		}
	}
	return nil
}

// ResolveMany 批量解析，只返回命中的
func (r *Resolver) ResolveMany(names []string) map[string]Record {
	out := make(map[string]Record, len(names))
	for _, name := range names {
		if rec := r.Resolve(name); rec != nil {
			out[name] = *rec
		}
	}
	return out
}

func (r *Resolver) Stats() Stats {
	s := Stats{TotalVenues: len(r.records), CityCounts: make(map[string]int)}
	for _, rec := range r.records {
		s.CityCounts[rec.City]++
	}
	return s
}
