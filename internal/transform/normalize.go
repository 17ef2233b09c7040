package transform

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"excel2dataverse/internal/domain"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/unicode/norm"
)

// DateLayout 是日期字段写入目标端的格式。
const DateLayout = "2006-01-02"

var columnReplacer = strings.NewReplacer(" ", "_", "$", "monto", "%", "porcentaje")

// 斜杠与短横线格式按月在前解析。
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04:05",
	"1/2/2006 15:04",
	"01/02/06",
	"1/2/06",
	"01-02-06",
	"1-2-06",
	"01-02-2006",
	"02-Jan-2006",
	"2-Jan-06",
	"January 2, 2006",
	"Jan 2, 2006",
	"20060102",
}

// Excel 序列号的合法范围：1900-01-01 到 9999-12-31。
const (
	minSerial = 1
	maxSerial = 2958465
)

// NormalizeColumn 规范化列名：NFC、小写、空格 -> _、$ -> monto、% -> porcentaje。
func NormalizeColumn(name string) string {
	return columnReplacer.Replace(strings.ToLower(norm.NFC.String(name)))
}

// NormalizeColumns 返回列名规范化后的新行。规范化后重名时按原列名排序，后者覆盖前者。
func NormalizeColumns(row domain.Row) domain.Row {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(domain.Row, len(row))
	for _, k := range keys {
		out[NormalizeColumn(k)] = row[k]
	}
	return out
}

// CleanBool 把 "si"（不区分大小写）视为 true，其余值（含 nil）为 false。
func CleanBool(v any) bool {
	if v == nil {
		return false
	}
	return strings.ToLower(fmt.Sprint(v)) == "si"
}

// CleanDate 解析日期并格式化为 2006-01-02，无法解析返回 nil。
func CleanDate(v any) any {
	t, ok := ParseDate(v)
	if !ok {
		return nil
	}
	return t.Format(DateLayout)
}

// ParseDate 支持 time.Time、Excel 序列号以及常见的文本格式。
func ParseDate(v any) (time.Time, bool) {
	switch x := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return x, !x.IsZero()
	case int64:
		return fromSerial(float64(x))
	case int:
		return fromSerial(float64(x))
	case float64:
		return fromSerial(x)
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	default:
		return ParseDate(fmt.Sprint(x))
	}
}

func fromSerial(f float64) (time.Time, bool) {
	if math.IsNaN(f) || f < minSerial || f > maxSerial {
		return time.Time{}, false
	}
	t, err := excelize.ExcelDateToTime(f, false)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
