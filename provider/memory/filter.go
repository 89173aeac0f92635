package memory

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/broady/reskit/resource"
)

func matchFilters(row []byte, filters []resource.Filter) bool {
	for _, f := range filters {
		if !match(gjson.GetBytes(row, f.Field), f.Operator, f.Value) {
			return false
		}
	}
	return true
}

func match(got gjson.Result, op resource.Operator, want any) bool {
	switch op {
	case resource.OpEq:
		return compareValue(got, want) == 0
	case resource.OpNe:
		return compareValue(got, want) != 0
	case resource.OpLt:
		return got.Exists() && compareValue(got, want) < 0
	case resource.OpGt:
		return got.Exists() && compareValue(got, want) > 0
	case resource.OpLte:
		return got.Exists() && compareValue(got, want) <= 0
	case resource.OpGte:
		return got.Exists() && compareValue(got, want) >= 0
	case resource.OpContains:
		needle := strings.ToLower(stringify(want))
		if got.IsArray() {
			for _, el := range got.Array() {
				if strings.ToLower(el.String()) == needle {
					return true
				}
			}
			return false
		}
		return strings.Contains(strings.ToLower(got.String()), needle)
	case resource.OpIn, resource.OpNin:
		found := false
		for _, v := range list(want) {
			if compareValue(got, v) == 0 {
				found = true
				break
			}
		}
		return found == (op == resource.OpIn)
	}
	return false
}

// compareValue orders got against want numerically when both are numbers,
// else by their string forms.
func compareValue(got gjson.Result, want any) int {
	if got.Type == gjson.Number {
		if n, ok := number(want); ok {
			return cmp.Compare(got.Float(), n)
		}
	}
	if got.Type == gjson.True || got.Type == gjson.False {
		if b, ok := want.(bool); ok {
			return cmp.Compare(boolInt(got.Bool()), boolInt(b))
		}
	}
	return strings.Compare(got.String(), stringify(want))
}

func number(v any) (float64, bool) {
	switch v := v.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		n, err := strconv.ParseFloat(v, 64)
		return n, err == nil
	}
	return 0, false
}

func stringify(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// list expands an in/nin operand. Strings are split on commas.
func list(v any) []any {
	switch v := v.(type) {
	case []any:
		return v
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	case string:
		var out []any
		for _, s := range strings.Split(v, ",") {
			out = append(out, strings.TrimSpace(s))
		}
		return out
	case nil:
		return nil
	}
	return []any{v}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func compareRows(a, b []byte, sorters []resource.Sorter) int {
	for _, s := range sorters {
		c := compareResults(gjson.GetBytes(a, s.Field), gjson.GetBytes(b, s.Field))
		if s.Order == resource.Desc {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

// compareResults sorts missing and null values first.
func compareResults(a, b gjson.Result) int {
	an, bn := a.Type == gjson.Null, b.Type == gjson.Null
	switch {
	case an && bn:
		return 0
	case an:
		return -1
	case bn:
		return 1
	}
	if a.Type == gjson.Number && b.Type == gjson.Number {
		return cmp.Compare(a.Float(), b.Float())
	}
	if (a.Type == gjson.True || a.Type == gjson.False) && (b.Type == gjson.True || b.Type == gjson.False) {
		return cmp.Compare(boolInt(a.Bool()), boolInt(b.Bool()))
	}
	return strings.Compare(a.String(), b.String())
}
