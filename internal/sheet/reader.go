package sheet

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"excel2dataverse/internal/domain"
	"github.com/xuri/excelize/v2"
)

// ErrNoSheet 工作簿中没有任何工作表。
var ErrNoSheet = errors.New("工作簿中没有工作表")

// Table 是读出的表头与数据行。
type Table struct {
	Sheet   string
	Headers []string
	Rows    []domain.Row
}

// ReadFile 读取工作簿第一个工作表，第一行作为列名。
func ReadFile(path string) (Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("打开工作簿失败: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read 从已打开的工作簿读取第一个工作表。
// 单元格按存储值读取，不套用显示格式：文本保持字符串，数字为 int64/float64，
// 日期格式的数字转换为 time.Time。
func Read(f *excelize.File) (Table, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Table{}, ErrNoSheet
	}
	name := sheets[0]
	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return Table{}, fmt.Errorf("读取工作表 %s 失败: %w", name, err)
	}
	table := Table{Sheet: name}
	if len(rows) == 0 {
		return table, nil
	}

	cells := newCellReader(f, name)
	table.Headers = headers(rows[0])
	for r, raw := range rows[1:] {
		if blank(raw) {
			continue
		}
		row := make(domain.Row, len(table.Headers))
		for i, h := range table.Headers {
			row[h] = nil
			if i >= len(raw) || raw[i] == "" {
				continue
			}
			axis, err := excelize.CoordinatesToCellName(i+1, r+2)
			if err != nil {
				return Table{}, err
			}
			v, err := cells.value(axis, raw[i])
			if err != nil {
				return Table{}, fmt.Errorf("读取单元格 %s!%s 失败: %w", name, axis, err)
			}
			row[h] = v
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

type cellReader struct {
	f         *excelize.File
	sheet     string
	date1904  bool
	dateStyle map[int]bool
}

func newCellReader(f *excelize.File, sheet string) *cellReader {
	c := &cellReader{f: f, sheet: sheet, dateStyle: map[int]bool{}}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		c.date1904 = *props.Date1904
	}
	return c
}

func (c *cellReader) value(axis, raw string) (any, error) {
	typ, err := c.f.GetCellType(c.sheet, axis)
	if err != nil {
		return nil, err
	}
	switch typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
		return raw, nil
	case excelize.CellTypeBool:
		return raw == "1" || strings.EqualFold(raw, "true"), nil
	case excelize.CellTypeError:
		return nil, nil
	case excelize.CellTypeDate:
		if t, ok := parseISODate(raw); ok {
			return t, nil
		}
		return raw, nil
	}

	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return raw, nil
	}
	isDate, err := c.isDateCell(axis)
	if err != nil {
		return nil, err
	}
	if isDate {
		if t, err := excelize.ExcelDateToTime(n, c.date1904); err == nil {
			return t, nil
		}
	}
	if n == math.Trunc(n) && math.Abs(n) < 1<<53 {
		return int64(n), nil
	}
	return n, nil
}

func (c *cellReader) isDateCell(axis string) (bool, error) {
	idx, err := c.f.GetCellStyle(c.sheet, axis)
	if err != nil {
		return false, err
	}
	if v, ok := c.dateStyle[idx]; ok {
		return v, nil
	}
	var v bool
	style, err := c.f.GetStyle(idx)
	switch {
	case err != nil:
		// 没有样式表的工作簿按常规格式处理。
	case style.CustomNumFmt != nil:
		v = IsDateFormat(*style.CustomNumFmt)
	default:
		v = isBuiltinDateFmt(style.NumFmt)
	}
	c.dateStyle[idx] = v
	return v, nil
}

// 内置格式 14-22、45-47 为日期时间；27-36、50-58 为东亚语言的日期格式。
func isBuiltinDateFmt(id int) bool {
	switch {
	case id >= 14 && id <= 22, id >= 45 && id <= 47:
		return true
	case id >= 27 && id <= 36, id >= 50 && id <= 58:
		return true
	}
	return false
}

// IsDateFormat 判断自定义数字格式是否表示日期或时间。
// 引号内文本、反斜杠转义与方括号段（颜色、区域、[h]）不参与判断。
func IsDateFormat(code string) bool {
	if i := strings.IndexByte(code, ';'); i >= 0 {
		code = code[:i]
	}
	var b strings.Builder
	quoted, bracket := false, false
	for i := 0; i < len(code); i++ {
		ch := code[i]
		switch {
		case quoted:
			quoted = ch != '"'
		case bracket:
			bracket = ch != ']'
		case ch == '"':
			quoted = true
		case ch == '[':
			bracket = true
		case ch == '\\' || ch == '_' || ch == '*':
			i++
		default:
			b.WriteByte(ch)
		}
	}
	return strings.ContainsAny(strings.ToLower(b.String()), "ymdhs")
}

var isoLayouts = []string{
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseISODate(raw string) (time.Time, bool) {
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func headers(raw []string) []string {
	out := make([]string, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("unnamed_%d", i)
		}
		out[i] = h
	}
	return out
}

func blank(raw []string) bool {
	for _, v := range raw {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
