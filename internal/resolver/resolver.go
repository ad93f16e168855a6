// Package resolver matches provider conversations to CRM leads by
// normalized phone number and derives the chat-id set a requester is
// allowed to see.
package resolver

import (
	"context"

	"leadchat-service/internal/access"
	"leadchat-service/internal/models"
	"leadchat-service/internal/phone"
	"leadchat-service/internal/repositories"
)

// Resolver performs chat/lead identity reconciliation.
type Resolver struct {
	phones *phone.Normalizer
	leads  repositories.LeadRepository
	gate   *access.Gate
}

// New constructs a Resolver.
func New(phones *phone.Normalizer, leads repositories.LeadRepository, gate *access.Gate) *Resolver {
	return &Resolver{phones: phones, leads: leads, gate: gate}
}

// LeadForChatID returns the lead whose phone matches the chat id, or
// nil. When several leads normalize to the same number the most
// recently updated one wins; the slice is expected in that order, which
// is how LeadRepository.List returns it.
func (r *Resolver) LeadForChatID(chatID string, leads []models.Lead) *models.Lead {
	for i := range leads {
		if r.phones.Match(chatID, leads[i].Phone) {
			return &leads[i]
		}
	}
	return nil
}

// CandidateChatIDsForPhone derives the provider-shaped chat ids a CRM
// phone can appear under.
func (r *Resolver) CandidateChatIDsForPhone(crmPhone string) []string {
	return r.phones.ChatIDsForPhone(crmPhone)
}

// VisibleChatFilter computes the chat ids the requester may see. A
// requester with the view-all capability sees everything; otherwise the
// set is derived from the leads assigned to them, matched loosely in
// both prefix variants. A seller with no assigned leads sees nothing.
func (r *Resolver) VisibleChatFilter(ctx context.Context, requester models.User) (repositories.ChatFilter, error) {
	if r.gate.Allowed(requester, access.CapViewAllLeads) {
		return repositories.AllChats, nil
	}

	owned, err := r.leads.ListByResponsible(ctx, requester.ID)
	if err != nil {
		return repositories.ChatFilter{}, err
	}

	seen := map[string]struct{}{}
	var chatIDs []string
	for _, lead := range owned {
		for _, id := range r.phones.ChatIDsForPhone(lead.Phone) {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			chatIDs = append(chatIDs, id)
		}
	}
	return repositories.ChatFilter{ChatIDs: chatIDs}, nil
}
