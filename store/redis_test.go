package store_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/effective-security/mcpagent/chatmodel"
	"github.com/effective-security/mcpagent/pkg/llms"
	"github.com/effective-security/mcpagent/store"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Requires a running Redis, for example:
//
//	docker run -d -p 6379:6379 redis:7
//	MCPAGENT_REDIS_ADDR=localhost:6379 go test ./store/...
func Test_RedisStore(t *testing.T) {
	addr := os.Getenv("MCPAGENT_REDIS_ADDR")
	if addr == "" {
		t.Skip("MCPAGENT_REDIS_ADDR is not set")
	}

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, client.Ping(ctx).Err(), "failed to connect to Redis")

	root := fmt.Sprintf("test-%d", time.Now().Unix())
	st := store.NewRedisStoreManager(client, root)

	tenantID := "tenant1"
	chatID := "chat1"
	msg1 := llms.MessageFromTextParts(llms.RoleHuman, "Hello")
	msg2 := llms.MessageFromTextParts(llms.RoleAI, "Hi there!")

	chatCtx := chatmodel.NewChatContext(tenantID, chatID, nil)
	cctx := chatmodel.WithChatContext(ctx, chatCtx)

	require.NoError(t, st.Add(cctx, msg1))
	require.NoError(t, st.Add(cctx, msg2))

	messages := st.Messages(cctx)
	require.Equal(t, 2, len(messages))
	assert.Equal(t, llms.RoleHuman, messages[0].Role)
	assert.Equal(t, "Hello\n", messages[0].GetContent())
	assert.Equal(t, llms.RoleAI, messages[1].Role)

	ci, err := st.UpdateChat(cctx, "Greetings", map[string]any{"lang": "en"})
	require.NoError(t, err)
	assert.Equal(t, "Greetings", ci.Title)

	info, err := st.GetChatInfo(cctx, "")
	require.NoError(t, err)
	assert.Equal(t, tenantID, info.TenantID)
	assert.Equal(t, chatID, info.ChatID)
	assert.Equal(t, "Greetings", info.Title)
	assert.Len(t, info.Messages, 2)

	chats, err := st.ListChats(cctx)
	require.NoError(t, err)
	assert.Contains(t, chats, chatID)

	tenants, err := st.ListTenants(cctx)
	require.NoError(t, err)
	assert.Contains(t, tenants, tenantID)

	deleted, err := st.Cleanup(cctx, tenantID, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), deleted)

	require.NoError(t, st.Reset(cctx))
	assert.Empty(t, st.Messages(cctx))
}
