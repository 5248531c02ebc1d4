package filter

import (
	"net/url"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProperty(t *testing.T) {
	tests := []struct {
		name  string
		expr  string
		value string
		want  Item
	}{
		{
			name:  "null parent becomes IsNull",
			expr:  "EQS_parent.id",
			value: "null",
			want:  Item{Field: "parent_id", Operator: IsNull},
		},
		{
			name:  "not null",
			expr:  "NES_parent.id",
			value: "null",
			want:  Item{Field: "parent_id", Operator: IsNotNull},
		},
		{
			name:  "string equality",
			expr:  "EQS_code",
			value: "State",
			want:  Item{Field: "code", Operator: Equal, Value: "State"},
		},
		{
			name:  "like",
			expr:  "LIKES_name",
			value: "sta",
			want:  Item{Field: "name", Operator: Contains, Value: "sta"},
		},
		{
			name:  "integer",
			expr:  "GEI_version",
			value: "3",
			want:  Item{Field: "version", Operator: GreaterOrEqual, Value: int64(3)},
		},
		{
			name:  "boolean",
			expr:  "EQB_leaf",
			value: "true",
			want:  Item{Field: "leaf", Operator: Equal, Value: true},
		},
		{
			name:  "in list",
			expr:  "NINS_value",
			value: "1, 3",
			want:  Item{Field: "value", Operator: NotInList, Value: []any{"1", "3"}},
		},
		{
			name:  "association path",
			expr:  "EQS_category.code",
			value: "State",
			want:  Item{Field: "category_code", Operator: Equal, Value: "State"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseProperty(tt.expr, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseProperty_TypedValues(t *testing.T) {
	item, err := ParseProperty("LTN_amount", "10.50")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("10.5").Equal(item.Value.(decimal.Decimal)))

	item, err = ParseProperty("GED_created", "2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), item.Value)
}

func TestParseProperty_Errors(t *testing.T) {
	for _, expr := range []string{"", "EQS", "EQS_", "XXS_name", "EQZ_name", "E_name"} {
		_, err := ParseProperty(expr, "x")
		assert.Error(t, err, expr)
	}

	_, err := ParseProperty("EQI_version", "abc")
	assert.Error(t, err)
}

func TestParseQuery(t *testing.T) {
	values := url.Values{
		"filter_LIKES_name": {"sta"},
		"filter_EQS_code":   {"State"},
		"limit":             {"10"},
	}

	items, err := ParseQuery(values)
	require.NoError(t, err)
	assert.Equal(t, []Item{
		{Field: "code", Operator: Equal, Value: "State"},
		{Field: "name", Operator: Contains, Value: "sta"},
	}, items)
}

func TestComparisonType_Valid(t *testing.T) {
	assert.True(t, InHierarchy.Valid())
	assert.False(t, ComparisonType("between").Valid())
}
