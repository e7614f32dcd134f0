package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i2y/indexpilot/chat"
	"github.com/i2y/indexpilot/llm"
)

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st := NewSQLiteStore(filepath.Join(t.TempDir(), "history.sqlite"))
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Init(context.Background()))
	return st
}

func TestSQLiteStore_RecordTurn(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	ts := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	turn1 := []llm.Message{
		llm.UserMessage("list my indices"),
		llm.AssistantMessageWithToolCalls("", []llm.ToolCall{{ID: "c1", Name: "listIndices", Arguments: `{"applicationId":"APP1"}`}}),
		llm.ToolMessage("c1", "listIndices", `{"items":[]}`),
		llm.AssistantMessage("You have no indices."),
	}
	invs := []chat.Invocation{{
		CallID:    "c1",
		Name:      "listIndices",
		Arguments: map[string]any{"applicationId": "APP1"},
		Result:    `{"items":[]}`,
		Success:   true,
		Timestamp: ts,
		Duration:  1500 * time.Millisecond,
	}}

	require.NoError(t, st.RecordTurn(ctx, "s1", turn1, invs))
	require.NoError(t, st.RecordTurn(ctx, "s1", []llm.Message{llm.UserMessage("thanks"), llm.AssistantMessage("Anytime.")}, nil))
	require.NoError(t, st.RecordTurn(ctx, "s2", []llm.Message{llm.UserMessage("hi")}, nil))

	msgs, err := st.Messages(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 6)
	assert.Equal(t, llm.RoleUser, msgs[0].Role)
	require.Len(t, msgs[1].ToolCalls, 1)
	assert.Equal(t, "listIndices", msgs[1].ToolCalls[0].Name)
	assert.Equal(t, "c1", msgs[2].ToolID)
	assert.Equal(t, "listIndices", msgs[2].Name)
	assert.Equal(t, "Anytime.", msgs[5].Content)

	got, err := st.Invocations(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "APP1", got[0].Arguments["applicationId"])
	assert.True(t, got[0].Success)
	assert.True(t, ts.Equal(got[0].Timestamp))
	assert.Equal(t, 1500*time.Millisecond, got[0].Duration)

	sessions, err := st.Sessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s2", "s1"}, sessions)
}

func TestSQLiteStore_EmptySession(t *testing.T) {
	st := newStore(t)

	msgs, err := st.Messages(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestSQLiteStore_InitIdempotentAndClose(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	require.NoError(t, st.Init(ctx))
	require.NoError(t, st.Close())
	require.NoError(t, st.Close())

	// Reopens lazily.
	require.NoError(t, st.RecordTurn(ctx, "s", []llm.Message{llm.UserMessage("x")}, nil))
}
