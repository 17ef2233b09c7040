package configstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Kind 区分两类列表：纯字符串与 name/commission 记录。
type Kind string

const (
	KindStrings Kind = "strings"
	KindRecords Kind = "records"
)

// Record 是带佣金的一项（如销售人员）。
// name 与 commission 之外的键保存在 Extra 中，写回时原样保留。
type Record struct {
	Name       string
	Commission decimal.Decimal
	Extra      map[string]json.RawMessage
}

var (
	errMissingName       = errors.New("缺少 name 字段")
	errMissingCommission = errors.New("缺少 commission 字段")
)

// UnmarshalJSON 要求 name 与 commission 都存在，commission 可以是数字或数字字符串。
func (r *Record) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	rawName, ok := fields["name"]
	if !ok {
		return errMissingName
	}
	if err := json.Unmarshal(rawName, &r.Name); err != nil {
		return fmt.Errorf("name: %w", err)
	}
	rawCommission, ok := fields["commission"]
	if !ok {
		return errMissingCommission
	}
	if err := r.Commission.UnmarshalJSON(rawCommission); err != nil {
		return fmt.Errorf("commission: %w", err)
	}
	delete(fields, "name")
	delete(fields, "commission")
	r.Extra = nil
	if len(fields) > 0 {
		r.Extra = fields
	}
	return nil
}

// MarshalJSON 依次写出 name、commission（JSON 数字）与按键排序的 Extra。
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"name":`)
	if err := writeString(&buf, r.Name); err != nil {
		return nil, err
	}
	buf.WriteString(`,"commission":`)
	buf.WriteString(r.Commission.String())

	keys := make([]string, 0, len(r.Extra))
	for k := range r.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		buf.WriteByte(',')
		if err := writeString(&buf, k); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		buf.Write(r.Extra[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1)
	return nil
}

// List 是一个命名的有序列表。
type List struct {
	Name    string
	Kind    Kind
	Strings []string
	Records []Record
}

// Len 返回元素个数。
func (l List) Len() int {
	if l.Kind == KindRecords {
		return len(l.Records)
	}
	return len(l.Strings)
}

// Empty 返回指定名称的空列表。
func Empty(name string) List {
	return List{Name: name, Kind: KindStrings, Strings: []string{}}
}

// KeepExtras 把 prev 中同名记录的额外字段带到 l 上，表单编辑只提交 name/commission。
func (l *List) KeepExtras(prev List) {
	if l.Kind != KindRecords || prev.Kind != KindRecords {
		return
	}
	extras := make(map[string]map[string]json.RawMessage, len(prev.Records))
	for _, r := range prev.Records {
		if len(r.Extra) > 0 {
			extras[r.Name] = r.Extra
		}
	}
	for i := range l.Records {
		if l.Records[i].Extra == nil {
			l.Records[i].Extra = extras[l.Records[i].Name]
		}
	}
}

var errMixedItems = errors.New("列表元素类型不一致")

// ParseItems 将 JSON 数组解析为列表。首元素为对象时按记录解析，否则按字符串解析。
func ParseItems(name string, raw []byte) (List, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return List{}, fmt.Errorf("顶层必须是 JSON 数组: %w", err)
	}
	if items == nil {
		return List{}, errors.New("顶层必须是 JSON 数组")
	}
	if len(items) == 0 {
		return Empty(name), nil
	}

	if isObject(items[0]) {
		records := make([]Record, 0, len(items))
		for i, item := range items {
			if !isObject(item) {
				return List{}, fmt.Errorf("第 %d 项: %w", i, errMixedItems)
			}
			var rec Record
			if err := json.Unmarshal(item, &rec); err != nil {
				return List{}, fmt.Errorf("第 %d 项解析失败: %w", i, err)
			}
			records = append(records, rec)
		}
		return List{Name: name, Kind: KindRecords, Records: records}, nil
	}

	values := make([]string, 0, len(items))
	for i, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			return List{}, fmt.Errorf("第 %d 项: %w", i, errMixedItems)
		}
		values = append(values, s)
	}
	return List{Name: name, Kind: KindStrings, Strings: values}, nil
}

// Encode 以 4 空格缩进输出 JSON 数组，不转义非 ASCII 字符。
func (l List) Encode() ([]byte, error) {
	var payload any
	switch l.Kind {
	case KindRecords:
		records := l.Records
		if records == nil {
			records = []Record{}
		}
		payload = records
	default:
		values := l.Strings
		if values == nil {
			values = []string{}
		}
		payload = values
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(payload); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
