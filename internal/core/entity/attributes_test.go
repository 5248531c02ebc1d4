package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttributes_ScanKeepsDecimalPrecision(t *testing.T) {
	var a Attributes
	require.NoError(t, a.Scan([]byte(`{"rate":"0.1","weight":12.3456789012345678,"active":true,"label":"x"}`)))

	assert.Equal(t, "0.1", a.GetDecimal("rate").String())
	assert.Equal(t, "12.3456789012345678", a.GetDecimal("weight").String())
	assert.True(t, a.GetBool("active"))
	assert.Equal(t, "x", a.GetString("label"))
	assert.True(t, a.GetDecimal("missing").IsZero())
}

func TestAttributes_ScanNilAndEmpty(t *testing.T) {
	a := Attributes{"k": "v"}
	require.NoError(t, a.Scan(nil))
	assert.Nil(t, a)

	require.NoError(t, a.Scan(""))
	assert.Nil(t, a)

	assert.Error(t, a.Scan(42))
}

func TestAttributes_ValueRoundTrip(t *testing.T) {
	v, err := Attributes{"color": "red"}.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `{"color":"red"}`, string(v.([]byte)))

	v, err = Attributes(nil).Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}
