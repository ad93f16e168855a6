package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeStripsNonDigits(t *testing.T) {
	n := New("55")

	assert.Equal(t, "14997603870", n.Normalize("(14) 99760-3870"))
	assert.Equal(t, "5514997603870", n.Normalize("5514997603870@c.us"))
	assert.Equal(t, "5514997603870", n.Normalize("5514997603870@s.whatsapp.net"))
	assert.Equal(t, "", n.Normalize(""))
	assert.Equal(t, "", n.Normalize("not a number"))
}

func TestNormalizeIdempotent(t *testing.T) {
	n := New("55")
	inputs := []string{"(14) 99760-3870", "5514997603870@c.us", "+55 14 9976-0387", "", "abc123"}
	for _, in := range inputs {
		once := n.Normalize(in)
		assert.Equal(t, once, n.Normalize(once))
	}
}

func TestPhoneCandidatesAddsCountryPrefix(t *testing.T) {
	n := New("55")

	assert.ElementsMatch(t, []string{"14997603870", "5514997603870"}, n.PhoneCandidates("(14) 99760-3870"))
	// Already prefixed: no duplicate variant.
	assert.Equal(t, []string{"5514997603870"}, n.PhoneCandidates("5514997603870"))
}

func TestShortKeysNeverMatch(t *testing.T) {
	n := New("55")

	assert.Nil(t, n.PhoneCandidates("1234567"))
	assert.Nil(t, n.ChatIDCandidates("55123@s.whatsapp.net"))
	assert.False(t, n.Match("55123@s.whatsapp.net", "123"))
}

func TestMatchCandidateSetSymmetry(t *testing.T) {
	n := New("55")

	// CRM phone without country prefix against fully qualified chat id.
	assert.True(t, n.Match("5514997603870@c.us", "14997603870"))
	// And the other way round.
	assert.True(t, n.Match("14997603870@c.us", "55 14 99760-3870"))
	assert.False(t, n.Match("5514997603870@c.us", "14997603871"))
}

func TestChatIDsForPhone(t *testing.T) {
	n := New("55")

	ids := n.ChatIDsForPhone("(14) 99760-3870")
	require.Len(t, ids, 2)
	assert.Contains(t, ids, "14997603870@s.whatsapp.net")
	assert.Contains(t, ids, "5514997603870@s.whatsapp.net")
}
