package query

import (
	"strings"

	"github.com/go-jose/go-jose/v4/json"
	"github.com/shopspring/decimal"
)

func matchAll(item map[string]any, where []Condition) bool {
	for _, c := range where {
		if !match(item[c.Field], c) {
			return false
		}
	}
	return true
}

func match(field any, c Condition) bool {
	switch c.Op {
	case OpEq:
		return equal(field, c.Value)
	case OpNeq:
		return !equal(field, c.Value)
	case OpGt:
		return sameKind(field, c.Value) && compareValues(field, c.Value) > 0
	case OpGte:
		return sameKind(field, c.Value) && compareValues(field, c.Value) >= 0
	case OpLt:
		return sameKind(field, c.Value) && compareValues(field, c.Value) < 0
	case OpLte:
		return sameKind(field, c.Value) && compareValues(field, c.Value) <= 0
	case OpIn:
		values, _ := c.Value.([]any)
		for _, v := range values {
			if equal(field, v) {
				return true
			}
		}
		return false
	case OpContains:
		return contains(field, c.Value)
	}
	return false
}

func equal(a, b any) bool {
	return sameKind(a, b) && compareValues(a, b) == 0
}

func contains(field, value any) bool {
	switch f := field.(type) {
	case string:
		s, ok := value.(string)
		return ok && strings.Contains(strings.ToLower(f), strings.ToLower(s))
	case []any:
		for _, v := range f {
			if equal(v, value) {
				return true
			}
		}
	case map[string]any:
		if s, ok := value.(string); ok {
			_, found := f[s]
			return found
		}
	}
	return false
}

// asNumber reads JSON numbers and numeric strings; amounts are stored as strings.
func asNumber(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(string(n))
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case string:
		if n == "" || strings.ContainsAny(n, "xXeE") {
			return decimal.Decimal{}, false
		}
		d, err := decimal.NewFromString(n)
		return d, err == nil
	}
	return decimal.Decimal{}, false
}

func sameKind(a, b any) bool {
	if _, ok := asNumber(a); ok {
		_, ok = asNumber(b)
		return ok
	}
	switch a.(type) {
	case string:
		_, ok := b.(string)
		return ok
	case bool:
		_, ok := b.(bool)
		return ok
	case nil:
		return b == nil
	}
	return false
}

// compareValues orders numbers numerically, strings lexically and false before true.
// Values of different kinds order by kind: nil, bool, number, string, other.
func compareValues(a, b any) int {
	na, aNum := asNumber(a)
	nb, bNum := asNumber(b)
	if aNum && bNum {
		return na.Cmp(nb)
	}
	ra, rb := rank(a, aNum), rank(b, bNum)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch x := a.(type) {
	case string:
		return strings.Compare(x, b.(string))
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		default:
			return 1
		}
	}
	return 0
}

func rank(v any, isNum bool) int {
	if isNum {
		return 2
	}
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case string:
		return 3
	}
	return 4
}
