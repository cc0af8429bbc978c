// Package conversation persists chat histories in the key-value store, one
// key per conversation holding the full message list as JSON.
package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kailas-cloud/chatdex/internal/db"
	"github.com/kailas-cloud/chatdex/internal/domain"
)

// store is the consumer interface for conversation persistence (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Repo implements usecase/chat.Conversations.
type Repo struct {
	store store
}

// New creates a conversation repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Get returns a conversation by ID.
func (r *Repo) Get(ctx context.Context, id string) (domain.Conversation, error) {
	key := convKey(id)
	raw, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.Conversation{}, fmt.Errorf("%w: %q", domain.ErrConversationNotFound, id)
		}
		return domain.Conversation{}, fmt.Errorf("get %s: %w", key, err)
	}

	var messages []domain.Message
	if err := json.Unmarshal(raw, &messages); err != nil {
		return domain.Conversation{}, fmt.Errorf("unmarshal conversation %s: %w", key, err)
	}
	return domain.Conversation{ID: id, Messages: messages}, nil
}

// Exists reports whether a conversation is already persisted.
func (r *Repo) Exists(ctx context.Context, id string) (bool, error) {
	ok, err := r.store.Exists(ctx, convKey(id))
	if err != nil {
		return false, fmt.Errorf("check exists %s: %w", convKey(id), err)
	}
	return ok, nil
}

// Save writes the full message list for a conversation, replacing any
// previous state. Histories are small enough that whole-value writes beat
// per-message append bookkeeping.
func (r *Repo) Save(ctx context.Context, conv domain.Conversation) error {
	key := convKey(conv.ID)
	messages := conv.Messages
	if messages == nil {
		messages = []domain.Message{}
	}
	data, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("marshal conversation %s: %w", key, err)
	}
	if err := r.store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func convKey(id string) string {
	return fmt.Sprintf("%sconv:%s", domain.KeyPrefix, id)
}
