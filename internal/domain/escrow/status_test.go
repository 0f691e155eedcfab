package escrow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusNames(t *testing.T) {
	for _, s := range []InvoiceStatus{StatusPending, StatusListed, StatusSold, StatusRepaid, StatusCancelled, StatusDefaulted} {
		assert.True(t, s.IsValid())
		parsed, err := ParseStatus(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}

	assert.False(t, InvoiceStatus(6).IsValid())
	_, err := ParseStatus("unknown")
	assert.Error(t, err)
}

func TestStatusIsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusListed.IsTerminal())
	assert.False(t, StatusSold.IsTerminal())
	assert.True(t, StatusRepaid.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.True(t, StatusDefaulted.IsTerminal())
}
