package entity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sysdict/internal/core/apperror"
	"sysdict/internal/core/id"
)

func TestCatalog_ValidateRequiresName(t *testing.T) {
	c := NewCatalog("   ")
	err := c.Validate(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperror.CodeValidation, mustAppError(t, err).Code)

	c.Name = "State"
	assert.NoError(t, c.Validate(context.Background()))
}

func TestTreeNode_SetParent(t *testing.T) {
	var n TreeNode
	assert.True(t, n.IsRoot())

	parent := id.New()
	n.SetParent(parent)
	assert.True(t, n.HasParent())
	assert.Equal(t, parent, *n.ParentID)

	n.SetParent(id.Nil())
	assert.Nil(t, n.ParentID)
}

func TestBaseEntity_EnsureID(t *testing.T) {
	var b BaseEntity
	assert.True(t, b.EnsureID())
	assert.False(t, id.IsNil(b.ID))
	assert.Equal(t, 1, b.Version)

	assigned := b.ID
	assert.False(t, b.EnsureID())
	assert.Equal(t, assigned, b.ID)
}

func mustAppError(t *testing.T, err error) *apperror.AppError {
	t.Helper()
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	return appErr
}
