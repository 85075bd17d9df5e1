package telegram

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStateStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStateStore()

	state, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, state)

	require.NoError(t, store.Set(ctx, 1, &ConversationState{Action: ActionRenameHabit, HabitID: 5}))

	state, err = store.Get(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, ActionRenameHabit, state.Action)
	assert.Equal(t, int64(5), state.HabitID)

	other, err := store.Get(ctx, 2)
	require.NoError(t, err)
	assert.Nil(t, other)

	require.NoError(t, store.Delete(ctx, 1))
	state, err = store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestMemoryStateStoreCopiesData(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStateStore()

	data := map[string]string{"text": "Привет"}
	require.NoError(t, store.Set(ctx, 1, &ConversationState{Action: ActionBroadcastBtn, Data: data}))
	data["text"] = "changed"

	state, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Привет", state.Data["text"])

	state.Data["text"] = "changed again"
	again, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Привет", again.Data["text"])
}

func TestDecodeState(t *testing.T) {
	want := &ConversationState{
		Action:    ActionHabitSchedule,
		HabitName: "Растяжка",
		Data:      map[string]string{"k": "v"},
	}
	raw, err := json.Marshal(want)
	require.NoError(t, err)

	got, err := decodeState(raw)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = decodeState([]byte("{broken"))
	assert.Error(t, err)
}

func TestStateKey(t *testing.T) {
	assert.Equal(t, "mewego:state:123456", stateKey(123456))
}

func TestAdminActionsArePrefixed(t *testing.T) {
	for _, action := range []string{ActionBroadcastText, ActionBroadcastBtn, ActionPollQuestion, ActionPollOptions, ActionAddAdmin} {
		assert.Contains(t, action, adminActionsPrefix)
	}
	for _, action := range []string{ActionHabitName, ActionHabitSchedule, ActionRenameHabit, ActionReminderTime, ActionTimezone} {
		assert.NotContains(t, action, adminActionsPrefix)
	}
}
