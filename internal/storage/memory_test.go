package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaydheshiv/uyir-sub000/internal/model"
)

func newSeededMemory(t *testing.T) *MemoryStorage {
	t.Helper()

	store := NewMemoryStorage()
	require.NoError(t, store.Init())
	require.NoError(t, store.CreateSession(&model.Session{
		ID:        "s1",
		Title:     "coaching",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}))
	return store
}

func TestMemoryStorage_SessionLifecycle(t *testing.T) {
	store := newSeededMemory(t)

	session, err := store.GetSession("s1")
	require.NoError(t, err)
	assert.Equal(t, "coaching", session.Title)

	sessions, err := store.ListSessions()
	require.NoError(t, err)
	assert.Len(t, sessions, 1)

	require.NoError(t, store.DeleteSession("s1"))
	_, err = store.GetSession("s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, store.DeleteSession("s1"), ErrSessionNotFound)
}

func TestMemoryStorage_MessagesAreCopies(t *testing.T) {
	store := newSeededMemory(t)

	require.NoError(t, store.AddMessage("s1", &model.Message{
		ID:   "m1",
		Text: "original",
	}))

	messages, err := store.GetMessages("s1")
	require.NoError(t, err)
	require.Len(t, messages, 1)

	// 改快照不应该影响存储里的内容
	messages[0].Text = "mutated"

	again, err := store.GetMessages("s1")
	require.NoError(t, err)
	assert.Equal(t, "original", again[0].Text)
}

func TestMemoryStorage_UpdateMessageVideoIsIncremental(t *testing.T) {
	store := newSeededMemory(t)
	require.NoError(t, store.AddMessage("s1", &model.Message{ID: "m1"}))

	progress := 40.0
	require.NoError(t, store.UpdateMessageVideo("s1", "m1", model.VideoUpdate{
		VideoID:  "v1",
		Progress: &progress,
	}))
	require.NoError(t, store.UpdateMessageVideo("s1", "m1", model.VideoUpdate{
		VideoURL:     "https://x/v1.mp4",
		ResponseText: "Hello there.",
	}))

	messages, err := store.GetMessages("s1")
	require.NoError(t, err)
	msg := messages[0]

	// 两次增量更新的字段都在，空字段不清旧值
	assert.Equal(t, "v1", msg.VideoID)
	assert.Equal(t, "https://x/v1.mp4", msg.VideoURL)
	assert.Equal(t, "Hello there.", msg.VideoResponseText)
	require.NotNil(t, msg.Progress)
	assert.InDelta(t, 40, *msg.Progress, 0.001)
	assert.Empty(t, msg.Text)
}

func TestMemoryStorage_SetTextOverridesBubble(t *testing.T) {
	store := newSeededMemory(t)
	require.NoError(t, store.AddMessage("s1", &model.Message{ID: "m1", Text: "placeholder"}))

	require.NoError(t, store.UpdateMessageVideo("s1", "m1", model.VideoUpdate{
		Text:    "final reply",
		SetText: true,
	}))

	messages, err := store.GetMessages("s1")
	require.NoError(t, err)
	assert.Equal(t, "final reply", messages[0].Text)
}

func TestMemoryStorage_SessionsAreCopies(t *testing.T) {
	store := newSeededMemory(t)
	require.NoError(t, store.AddMessage("s1", &model.Message{ID: "m1", Text: "original"}))

	// GetSession返回的是快照，改它不应该穿透到存储
	session, err := store.GetSession("s1")
	require.NoError(t, err)
	session.Title = "mutated"
	session.Messages[0].Text = "mutated"

	again, err := store.GetSession("s1")
	require.NoError(t, err)
	assert.Equal(t, "coaching", again.Title)
	assert.Equal(t, "original", again.Messages[0].Text)

	listed, err := store.ListSessions()
	require.NoError(t, err)
	require.Len(t, listed, 1)
	listed[0].Messages[0].Text = "mutated again"

	final, err := store.GetSession("s1")
	require.NoError(t, err)
	assert.Equal(t, "original", final.Messages[0].Text)
}

func TestMemoryStorage_NotFoundErrors(t *testing.T) {
	store := newSeededMemory(t)

	assert.ErrorIs(t, store.AddMessage("missing", &model.Message{ID: "m1"}), ErrSessionNotFound)
	_, err := store.GetMessages("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, store.UpdateMessageText("s1", "missing", "x"), ErrMessageNotFound)
	assert.ErrorIs(t, store.UpdateMessageVideo("s1", "missing", model.VideoUpdate{}), ErrMessageNotFound)
}
