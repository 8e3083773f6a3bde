package chatmodel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatContext_Basics(t *testing.T) {
	t.Parallel()
	c := NewChatContext("tid", "cid", 123)
	require.NotNil(t, c)
	assert.Equal(t, "tid", c.GetTenantID())
	assert.Equal(t, "cid", c.GetChatID())
	assert.Equal(t, 123, c.AppData())

	// Metadata
	val, ok := c.GetMetadata("not-found")
	assert.Nil(t, val)
	assert.False(t, ok)
	c.SetMetadata("foo", 1)
	v, ok := c.GetMetadata("foo")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestNewChatContext_DefaultIDs(t *testing.T) {
	t.Parallel()
	c := NewChatContext("", "", nil)
	require.NotNil(t, c)
	assert.Equal(t, DefaultTenantID, c.GetTenantID())
	assert.NotEmpty(t, c.GetChatID())
}

func TestContextPlumbing(t *testing.T) {
	t.Parallel()
	c := NewChatContext("x", "y", nil)
	ctx := context.Background()
	ctx = WithChatContext(ctx, c)
	got := GetChatContext(ctx)
	assert.Equal(t, c, got)
	assert.Equal(t, "y", GetChatID(ctx))

	tenant, chat, err := GetTenantAndChatID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "x", tenant)
	assert.Equal(t, "y", chat)
}

func TestGetTenantAndChatID_Error(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	assert.Nil(t, GetChatContext(ctx))
	assert.Empty(t, GetChatID(ctx))
	_, _, err := GetTenantAndChatID(ctx)
	require.Error(t, err)
}

func TestNewChatID_Unique(t *testing.T) {
	id1 := NewChatID()
	id2 := NewChatID()
	assert.NotEqual(t, id1, id2)
}
