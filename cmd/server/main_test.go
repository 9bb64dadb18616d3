package main

import (
	"crypto/ed25519"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aw-token-ledger/internal/domain"
)

func testAccount(t *testing.T, seed byte) domain.Address {
	t.Helper()
	var s [ed25519.SeedSize]byte
	s[0] = seed
	pub := ed25519.NewKeyFromSeed(s[:]).Public().(ed25519.PublicKey)
	addr, err := domain.AddressFromBytes(pub)
	require.NoError(t, err)
	return addr
}

func TestParseAllocations(t *testing.T) {
	alice := testAccount(t, 1)
	bob := testAccount(t, 2)

	got, err := parseAllocations(alice.String() + ":1000, " + bob.String() + ":250")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, alice, got[0].account)
	assert.True(t, got[0].amount.Eq(uint256.NewInt(1000)))
	assert.Equal(t, bob, got[1].account)
	assert.True(t, got[1].amount.Eq(uint256.NewInt(250)))
}

func TestParseAllocations_Empty(t *testing.T) {
	for _, spec := range []string{"", "  ", ","} {
		got, err := parseAllocations(spec)
		require.NoError(t, err, "spec %q", spec)
		assert.Empty(t, got, "spec %q", spec)
	}
}

func TestParseAllocations_Malformed(t *testing.T) {
	alice := testAccount(t, 1)

	cases := map[string]string{
		"missing separator": alice.String(),
		"bad address":       "not-an-address:100",
		"bad amount":        alice.String() + ":12x",
		"negative amount":   alice.String() + ":-5",
	}
	for name, spec := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parseAllocations(spec)
			assert.Error(t, err)
		})
	}
}
