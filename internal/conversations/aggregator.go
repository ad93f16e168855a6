// Package conversations composes the per-chat dashboard view from the
// message store and the lead catalog. Pure read path; marking a chat
// read is a separate store operation.
package conversations

import (
	"context"
	"log"
	"time"

	"github.com/patrickmn/go-cache"

	"leadchat-service/internal/models"
	"leadchat-service/internal/repositories"
	"leadchat-service/internal/resolver"
)

// AvatarFetcher resolves a chat's avatar URL. Failures are tolerated
// per conversation row.
type AvatarFetcher interface {
	AvatarURL(ctx context.Context, chatID string) (string, error)
}

// Aggregator builds the conversations listing.
type Aggregator struct {
	messages repositories.MessageRepository
	leads    repositories.LeadRepository
	resolver *resolver.Resolver
	avatars  AvatarFetcher
	cache    *cache.Cache
}

// New constructs an Aggregator. avatars may be nil, which disables
// avatar resolution entirely.
func New(messages repositories.MessageRepository, leads repositories.LeadRepository, res *resolver.Resolver, avatars AvatarFetcher) *Aggregator {
	return &Aggregator{
		messages: messages,
		leads:    leads,
		resolver: res,
		avatars:  avatars,
		cache:    cache.New(10*time.Minute, 30*time.Minute),
	}
}

// Build returns one conversation row per distinct chat visible to the
// requester, most recent first. A requester restricted to owned leads
// with none assigned gets an empty list, not an error.
func (a *Aggregator) Build(ctx context.Context, requester models.User) ([]models.Conversation, error) {
	filter, err := a.resolver.VisibleChatFilter(ctx, requester)
	if err != nil {
		return nil, err
	}
	if filter.Empty() {
		return []models.Conversation{}, nil
	}

	summaries, err := a.messages.ListDistinctChats(ctx, filter)
	if err != nil {
		return nil, err
	}
	unread, err := a.messages.CountUnreadByChat(ctx, filter)
	if err != nil {
		return nil, err
	}
	leads, err := a.leads.List(ctx)
	if err != nil {
		return nil, err
	}

	conversations := make([]models.Conversation, 0, len(summaries))
	for _, summary := range summaries {
		conv := models.Conversation{
			ChatID:             summary.ChatID,
			LastMessagePreview: summary.LastBody,
			LastTimestamp:      summary.LastTimestamp,
			UnreadCount:        unread[summary.ChatID],
		}
		conv.IsRead = conv.UnreadCount == 0

		conv.DisplayName = summary.LastSender
		if lead := a.resolver.LeadForChatID(summary.ChatID, leads); lead != nil {
			conv.LeadID = &lead.ID
			conv.DisplayName = lead.Name
		}
		if conv.DisplayName == "" {
			conv.DisplayName = "unknown"
		}

		conv.Avatar = a.avatar(ctx, summary.ChatID)
		conversations = append(conversations, conv)
	}
	return conversations, nil
}

// avatar is best-effort: a failed fetch yields a nil avatar for the
// row, never an error for the listing.
func (a *Aggregator) avatar(ctx context.Context, chatID string) *string {
	if a.avatars == nil {
		return nil
	}
	if cached, ok := a.cache.Get(chatID); ok {
		url := cached.(string)
		if url == "" {
			return nil
		}
		return &url
	}

	url, err := a.avatars.AvatarURL(ctx, chatID)
	if err != nil {
		log.Printf("avatar fetch for %s failed: %v", chatID, err)
		return nil
	}
	a.cache.Set(chatID, url, cache.DefaultExpiration)
	if url == "" {
		return nil
	}
	return &url
}
