// Package phone reconciles free-form CRM phone numbers with the
// messaging provider's chat identifiers. Provider ids always carry the
// full international number; CRM records may or may not include the
// country prefix, so matching works over candidate key sets rather than
// exact equality.
package phone

import "strings"

// MinMatchDigits is the floor below which a key is never considered for
// matching. The upstream data allowed floorless substring matches, which
// can collide on short or malformed numbers.
const MinMatchDigits = 8

// Normalizer produces canonical phone keys and their prefix variants.
type Normalizer struct {
	// CountryPrefix is the default country calling code of CRM-entered
	// numbers, e.g. "55".
	CountryPrefix string
	// ChatServer is the provider's domain suffix for user chats.
	ChatServer string
}

// New builds a Normalizer with the given country prefix and the default
// provider chat server.
func New(countryPrefix string) *Normalizer {
	return &Normalizer{CountryPrefix: countryPrefix, ChatServer: "s.whatsapp.net"}
}

// Normalize strips everything but digits. Chat ids lose their domain
// suffix first. Malformed or empty input yields an empty key, which
// matches nothing.
func (n *Normalizer) Normalize(raw string) string {
	if at := strings.IndexByte(raw, '@'); at >= 0 {
		raw = raw[:at]
	}
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PhoneCandidates returns the candidate key set for a CRM-entered phone:
// the normalized number itself and, for a 10-11 digit domestic number,
// the country-prefixed variant.
func (n *Normalizer) PhoneCandidates(raw string) []string {
	key := n.Normalize(raw)
	if len(key) < MinMatchDigits {
		return nil
	}
	candidates := []string{key}
	if len(key) >= 10 && len(key) <= 11 && !strings.HasPrefix(key, n.CountryPrefix) {
		candidates = append(candidates, n.CountryPrefix+key)
	}
	return candidates
}

// ChatIDCandidates returns the candidate key set for a provider chat id:
// the normalized number and, when the country prefix can be stripped
// while leaving a plausible number, the domestic variant.
func (n *Normalizer) ChatIDCandidates(chatID string) []string {
	key := n.Normalize(chatID)
	if len(key) < MinMatchDigits {
		return nil
	}
	candidates := []string{key}
	if strings.HasPrefix(key, n.CountryPrefix) {
		stripped := key[len(n.CountryPrefix):]
		if len(stripped) >= 10 {
			candidates = append(candidates, stripped)
		}
	}
	return candidates
}

// ChatIDsForPhone derives the provider-shaped chat ids to query for a
// CRM phone, one per candidate key.
func (n *Normalizer) ChatIDsForPhone(raw string) []string {
	keys := n.PhoneCandidates(raw)
	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, key+"@"+n.ChatServer)
	}
	return ids
}

// Match reports whether a chat id and a CRM phone refer to the same
// number, i.e. their candidate key sets intersect.
func (n *Normalizer) Match(chatID, crmPhone string) bool {
	chatKeys := n.ChatIDCandidates(chatID)
	phoneKeys := n.PhoneCandidates(crmPhone)
	for _, ck := range chatKeys {
		for _, pk := range phoneKeys {
			if ck == pk {
				return true
			}
		}
	}
	return false
}
