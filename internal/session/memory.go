package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/abhilash2429/Artrix-AI/pkg/logging"
)

// Exchange is one user message and the assistant's reply, kept for
// conversational context.
type Exchange struct {
	UserMessage      string `json:"user_message"`
	AssistantMessage string `json:"assistant_message"`
}

// Memory is the bounded conversation buffer for active sessions: the last
// maxTurns exchanges, held in Redis with a TTL matching the idle timeout.
// All access goes through the orchestrator.
type Memory struct {
	cache    *goredis.Client
	maxTurns int
	ttl      time.Duration
	logger   logging.Logger
}

func NewMemory(cache *goredis.Client, maxTurns int, ttl time.Duration, logger logging.Logger) *Memory {
	if maxTurns <= 0 {
		maxTurns = 10
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Memory{cache: cache, maxTurns: maxTurns, ttl: ttl, logger: logger}
}

func memoryKey(sessionID string) string {
	return "artrix:memory:" + sessionID
}

// History returns the buffered exchanges, oldest first. A missing key is
// an empty history, not an error.
func (m *Memory) History(ctx context.Context, sessionID string) ([]Exchange, error) {
	raw, err := m.cache.Get(ctx, memoryKey(sessionID)).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session memory: %w", err)
	}
	var history []Exchange
	if err := json.Unmarshal(raw, &history); err != nil {
		return nil, fmt.Errorf("decode session memory: %w", err)
	}
	return history, nil
}

// Append adds an exchange, trims the buffer to the bound, and refreshes
// the TTL.
func (m *Memory) Append(ctx context.Context, sessionID string, exchange Exchange) error {
	history, err := m.History(ctx, sessionID)
	if err != nil {
		return err
	}
	history = append(history, exchange)
	if len(history) > m.maxTurns {
		history = history[len(history)-m.maxTurns:]
	}
	payload, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("encode session memory: %w", err)
	}
	if err := m.cache.Set(ctx, memoryKey(sessionID), payload, m.ttl).Err(); err != nil {
		return fmt.Errorf("store session memory: %w", err)
	}
	return nil
}

// Clear drops the buffer. Called when a session escalates or closes.
func (m *Memory) Clear(ctx context.Context, sessionID string) error {
	if err := m.cache.Del(ctx, memoryKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("clear session memory: %w", err)
	}
	return nil
}
