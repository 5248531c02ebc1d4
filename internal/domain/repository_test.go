package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListFilter_Normalize(t *testing.T) {
	f := ListFilter{Limit: 0, Offset: -5}
	f.Normalize()
	assert.Equal(t, 50, f.Limit)
	assert.Equal(t, 0, f.Offset)

	f = ListFilter{Limit: 10000, Offset: 20}
	f.Normalize()
	assert.Equal(t, MaxListLimit, f.Limit)
	assert.Equal(t, 20, f.Offset)
}
