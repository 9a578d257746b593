package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountIDValid(t *testing.T) {
	tests := []struct {
		name     string
		account  AccountID
		expected bool
	}{
		{
			name:     "simple account",
			account:  AccountID("alice"),
			expected: true,
		},
		{
			name:     "dotted account",
			account:  AccountID("alice.near"),
			expected: true,
		},
		{
			name:     "digits and separators",
			account:  AccountID("varus-2022_a1"),
			expected: true,
		},
		{
			name:     "single character",
			account:  AccountID("a"),
			expected: true,
		},
		{
			name:     "empty",
			account:  AccountID(""),
			expected: false,
		},
		{
			name:     "uppercase",
			account:  AccountID("Alice"),
			expected: false,
		},
		{
			name:     "leading separator",
			account:  AccountID("-alice"),
			expected: false,
		},
		{
			name:     "trailing separator",
			account:  AccountID("alice."),
			expected: false,
		},
		{
			name:     "too long",
			account:  AccountID("a234567890123456789012345678901234567890123456789012345678901234x"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.account.Valid())
		})
	}
}

func TestTokenMetadataHash(t *testing.T) {
	title := "thevarus"
	media := "https://tinyurl.com/bddjmwk4"
	copies := uint64(1)

	meta := TokenMetadata{
		Title:     &title,
		Media:     &media,
		MediaHash: []byte{0, 1, 2},
		Copies:    &copies,
	}

	first, err := meta.Hash()
	require.NoError(t, err)
	assert.Len(t, first, 64) // hex sha256

	// hashing is deterministic
	second, err := meta.Hash()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// any field change moves the hash
	other := meta
	otherTitle := "mutant"
	other.Title = &otherTitle
	changed, err := other.Hash()
	require.NoError(t, err)
	assert.NotEqual(t, first, changed)

	// absent optional fields hash differently from present ones
	empty := TokenMetadata{}
	emptyHash, err := empty.Hash()
	require.NoError(t, err)
	assert.NotEqual(t, first, emptyHash)
}

func TestNewLedgerEvent(t *testing.T) {
	a := NewLedgerEvent(EventKindMint, AccountID("alice"))
	b := NewLedgerEvent(EventKindTransfer, AccountID("alice"))

	assert.Equal(t, EventKindMint, a.Kind)
	assert.Equal(t, AccountID("alice"), a.Authorizer)
	assert.Len(t, a.ID, 26) // ULID string form
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.Timestamp.IsZero())
}

func TestDefaultCollectionMetadata(t *testing.T) {
	meta := DefaultCollectionMetadata()
	assert.Equal(t, MetadataSpec, meta.Spec)
	assert.Equal(t, "thevarus2022", meta.Name)
	assert.Equal(t, "VARUS", meta.Symbol)
}
