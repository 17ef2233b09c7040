package domain

// Row 表示表格中的一行，列名 -> 标量值（string/int64/float64/bool/nil）。
type Row map[string]any

// Clone 返回浅拷贝，清洗时不修改调用方持有的原始行。
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Payload 去掉值为 nil 的字段，目标端把缺失字段视为未设置。
func (r Row) Payload() Row {
	out := make(Row, len(r))
	for k, v := range r {
		if v == nil {
			continue
		}
		out[k] = v
	}
	return out
}

// EntityMapping 描述一个实体的源文件与目标表。
type EntityMapping struct {
	Key        string `json:"key"`
	SourcePath string `json:"source_path"`
	Table      string `json:"table"`
}

// Outcome 汇总单个实体的迁移结果。
type Outcome struct {
	Entity     string `json:"entity"`
	Table      string `json:"table"`
	Source     string `json:"source"`
	Attempted  int    `json:"attempted"`
	Succeeded  int    `json:"succeeded"`
	Failed     int    `json:"failed"`
	Skipped    bool   `json:"skipped"`
	SkipReason string `json:"skip_reason,omitempty"`
	Err        error  `json:"-"`
}
