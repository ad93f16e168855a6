package mocks

import (
	"context"
	"sort"
	"sync"

	"leadchat-service/internal/models"
	"leadchat-service/internal/repositories"
)

// MemoryMessageStore is an in-memory MessageRepository implementing the
// store contract for behavior tests, monotonic ack rule included.
type MemoryMessageStore struct {
	mu       sync.Mutex
	messages map[string]*models.Message
	order    []string
}

func NewMemoryMessageStore() *MemoryMessageStore {
	return &MemoryMessageStore{messages: make(map[string]*models.Message)}
}

func (s *MemoryMessageStore) Append(_ context.Context, msg models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[msg.ID]; ok {
		return nil
	}
	stored := msg
	s.messages[msg.ID] = &stored
	s.order = append(s.order, msg.ID)
	return nil
}

func (s *MemoryMessageStore) UpdateAck(_ context.Context, messageID string, ack int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg, ok := s.messages[messageID]; ok && ack > msg.Ack {
		msg.Ack = ack
	}
	return nil
}

func (s *MemoryMessageStore) Get(messageID string) (models.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg, ok := s.messages[messageID]; ok {
		return *msg, true
	}
	return models.Message{}, false
}

func (s *MemoryMessageStore) ListByChat(_ context.Context, chatID string) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var msgs []models.Message
	for _, id := range s.order {
		if msg := s.messages[id]; msg != nil && msg.ChatID == chatID {
			msgs = append(msgs, *msg)
		}
	}
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].Timestamp < msgs[j].Timestamp })
	return msgs, nil
}

func (s *MemoryMessageStore) ListDistinctChats(_ context.Context, filter repositories.ChatFilter) ([]models.ChatSummary, error) {
	if filter.Empty() {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	latest := map[string]models.Message{}
	for _, id := range s.order {
		msg := s.messages[id]
		if !chatVisible(filter, msg.ChatID) {
			continue
		}
		if last, ok := latest[msg.ChatID]; !ok || msg.Timestamp >= last.Timestamp {
			latest[msg.ChatID] = *msg
		}
	}

	summaries := make([]models.ChatSummary, 0, len(latest))
	for chatID, msg := range latest {
		summaries = append(summaries, models.ChatSummary{
			ChatID:        chatID,
			LastBody:      msg.Body,
			LastSender:    msg.SenderName,
			LastTimestamp: msg.Timestamp,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].LastTimestamp != summaries[j].LastTimestamp {
			return summaries[i].LastTimestamp > summaries[j].LastTimestamp
		}
		return summaries[i].ChatID < summaries[j].ChatID
	})
	return summaries, nil
}

func (s *MemoryMessageStore) CountUnreadByChat(_ context.Context, filter repositories.ChatFilter) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := map[string]int{}
	if filter.Empty() {
		return counts, nil
	}
	for _, msg := range s.messages {
		if msg.FromMe || msg.Ack >= models.AckRead || !chatVisible(filter, msg.ChatID) {
			continue
		}
		counts[msg.ChatID]++
	}
	return counts, nil
}

func (s *MemoryMessageStore) MarkChatRead(_ context.Context, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, msg := range s.messages {
		if msg.ChatID == chatID && !msg.FromMe && msg.Ack < models.AckRead {
			msg.Ack = models.AckRead
		}
	}
	return nil
}

func (s *MemoryMessageStore) DeleteChat(_ context.Context, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.order[:0]
	for _, id := range s.order {
		if s.messages[id].ChatID == chatID {
			delete(s.messages, id)
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return nil
}

func chatVisible(filter repositories.ChatFilter, chatID string) bool {
	if filter.All {
		return true
	}
	for _, id := range filter.ChatIDs {
		if id == chatID {
			return true
		}
	}
	return false
}
