package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Conversation actions that wait for free text from the user.
const (
	ActionHabitName     = "habit_name"
	ActionHabitSchedule = "habit_schedule"
	ActionRenameHabit   = "rename_habit"
	ActionReminderTime  = "reminder_time"
	ActionTimezone      = "timezone"
	ActionBroadcastText = "admin_broadcast_text"
	ActionBroadcastBtn  = "admin_broadcast_button"
	ActionPollQuestion  = "admin_poll_question"
	ActionPollOptions   = "admin_poll_options"
	ActionAddAdmin      = "admin_add_admin"
)

const stateTTL = 24 * time.Hour

// ConversationState is the pending step of a multi-message dialog.
// Onboarding progress is stored on the user record instead.
type ConversationState struct {
	Action    string            `json:"action"`
	HabitID   int64             `json:"habit_id,omitempty"`
	HabitName string            `json:"habit_name,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
}

// StateStore keeps conversation state per Telegram user.
// Get returns nil without error when nothing is pending.
type StateStore interface {
	Get(ctx context.Context, telegramID int64) (*ConversationState, error)
	Set(ctx context.Context, telegramID int64, state *ConversationState) error
	Delete(ctx context.Context, telegramID int64) error
}

// ==================== MEMORY ====================

type MemoryStateStore struct {
	mu     sync.RWMutex
	states map[int64]ConversationState
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[int64]ConversationState)}
}

func (s *MemoryStateStore) Get(_ context.Context, telegramID int64) (*ConversationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[telegramID]
	if !ok {
		return nil, nil
	}
	state.Data = copyData(state.Data)
	return &state, nil
}

func (s *MemoryStateStore) Set(_ context.Context, telegramID int64, state *ConversationState) error {
	stored := *state
	stored.Data = copyData(state.Data)

	s.mu.Lock()
	s.states[telegramID] = stored
	s.mu.Unlock()
	return nil
}

func (s *MemoryStateStore) Delete(_ context.Context, telegramID int64) error {
	s.mu.Lock()
	delete(s.states, telegramID)
	s.mu.Unlock()
	return nil
}

func copyData(data map[string]string) map[string]string {
	if data == nil {
		return nil
	}
	out := make(map[string]string, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}

// ==================== REDIS ====================

// RedisStateStore survives restarts and is shared between bot replicas.
type RedisStateStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStateStore(ctx context.Context, url string) (*RedisStateStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisStateStore{client: client, ttl: stateTTL}, nil
}

func stateKey(telegramID int64) string {
	return fmt.Sprintf("mewego:state:%d", telegramID)
}

func (s *RedisStateStore) Get(ctx context.Context, telegramID int64) (*ConversationState, error) {
	raw, err := s.client.Get(ctx, stateKey(telegramID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get state: %w", err)
	}
	return decodeState(raw)
}

func (s *RedisStateStore) Set(ctx context.Context, telegramID int64, state *ConversationState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := s.client.Set(ctx, stateKey(telegramID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("set state: %w", err)
	}
	return nil
}

func (s *RedisStateStore) Delete(ctx context.Context, telegramID int64) error {
	if err := s.client.Del(ctx, stateKey(telegramID)).Err(); err != nil {
		return fmt.Errorf("delete state: %w", err)
	}
	return nil
}

func (s *RedisStateStore) Close() error {
	return s.client.Close()
}

func decodeState(raw []byte) (*ConversationState, error) {
	var state ConversationState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	return &state, nil
}
