package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOnlyNewestTicketIsLatest(t *testing.T) {
	seq := NewSequencer()

	first := seq.Begin(KindPeople)
	second := seq.Begin(KindPeople)
	other := seq.Begin(KindItems)

	assert.False(t, first.Latest())
	assert.True(t, second.Latest())
	assert.True(t, other.Latest(), "kinds are sequenced independently")
	assert.Equal(t, uint64(2), second.Token())
	assert.Equal(t, KindPeople, second.Kind())
}

func TestZeroTicketIsNeverLatest(t *testing.T) {
	assert.False(t, Ticket{}.Latest())
}
