package filter

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// QueryPrefix marks query parameters that carry property filters,
// e.g. ?filter_EQS_code=State&filter_LIKES_name=sta
const QueryPrefix = "filter_"

// NullLiteral is the textual value that turns EQ/NE into IS [NOT] NULL.
const NullLiteral = "null"

// DateLayout is the layout accepted for D-typed values.
const DateLayout = "2006-01-02"

var restrictions = map[string]ComparisonType{
	"EQ":    Equal,
	"NE":    NotEqual,
	"LT":    Less,
	"GT":    Greater,
	"LE":    LessOrEqual,
	"GE":    GreaterOrEqual,
	"IN":    InList,
	"NIN":   NotInList,
	"LIKE":  Contains,
	"NLIKE": NotContains,
}

// ParseProperty converts a textual property filter into an Item.
//
// The expression has the form <RESTRICTION><TYPE>_<property>, for example
// EQS_parent.id, LIKES_name or INI_sort_order. The type letter converts value:
// S string, I/L integer, N decimal, D date (2006-01-02), B boolean.
// Association paths use dots and map to columns: parent.id -> parent_id.
// IN/NIN values are comma separated.
func ParseProperty(expr, value string) (Item, error) {
	head, property, ok := strings.Cut(expr, "_")
	if !ok || property == "" || len(head) < 2 {
		return Item{}, fmt.Errorf("invalid property filter %q", expr)
	}

	restriction, kind := head[:len(head)-1], head[len(head)-1:]
	op, ok := restrictions[restriction]
	if !ok {
		return Item{}, fmt.Errorf("unknown restriction %q in %q", restriction, expr)
	}

	field := strings.ReplaceAll(property, ".", "_")

	if value == NullLiteral {
		switch op {
		case Equal:
			return Item{Field: field, Operator: IsNull}, nil
		case NotEqual:
			return Item{Field: field, Operator: IsNotNull}, nil
		}
	}

	if op == InList || op == NotInList {
		parts := strings.Split(value, ",")
		values := make([]any, 0, len(parts))
		for _, p := range parts {
			v, err := convert(kind, strings.TrimSpace(p))
			if err != nil {
				return Item{}, fmt.Errorf("property filter %q: %w", expr, err)
			}
			values = append(values, v)
		}
		return Item{Field: field, Operator: op, Value: values}, nil
	}

	v, err := convert(kind, value)
	if err != nil {
		return Item{}, fmt.Errorf("property filter %q: %w", expr, err)
	}
	return Item{Field: field, Operator: op, Value: v}, nil
}

// MustParseProperty is ParseProperty for expressions fixed at compile time.
func MustParseProperty(expr, value string) Item {
	item, err := ParseProperty(expr, value)
	if err != nil {
		panic(err)
	}
	return item
}

// ParseQuery extracts property filters from query parameters carrying QueryPrefix.
// Items are returned in key order so the generated SQL is stable.
func ParseQuery(values url.Values) ([]Item, error) {
	keys := make([]string, 0, len(values))
	for k := range values {
		if strings.HasPrefix(k, QueryPrefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	items := make([]Item, 0, len(keys))
	for _, k := range keys {
		item, err := ParseProperty(strings.TrimPrefix(k, QueryPrefix), values.Get(k))
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func convert(kind, value string) (any, error) {
	switch kind {
	case "S":
		return value, nil
	case "I", "L":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", value)
		}
		return n, nil
	case "N":
		d, err := decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", value)
		}
		return d, nil
	case "D":
		t, err := time.Parse(DateLayout, value)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q", value)
		}
		return t, nil
	case "B":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("invalid boolean %q", value)
		}
		return b, nil
	}
	return nil, fmt.Errorf("unknown property type %q", kind)
}
