package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "multisig/pkg/domain-errors"
)

// TestParseIdentity_Invariants validates the parsing invariant:
// "identities are exactly 32 bytes, hex encoded on the wire"
func TestParseIdentity_Invariants(t *testing.T) {
	valid := strings.Repeat("ab", IdentitySize)

	t.Run("accepts 64 hex characters", func(t *testing.T) {
		got, err := ParseIdentity(valid)
		require.NoError(t, err)
		assert.Equal(t, byte(0xab), got[0])
		assert.Equal(t, valid, got.String())
	})

	t.Run("accepts uppercase and surrounding whitespace", func(t *testing.T) {
		got, err := ParseIdentity("  " + strings.ToUpper(valid) + "\n")
		require.NoError(t, err)
		assert.Equal(t, valid, got.String())
	})

	tests := []struct {
		name  string
		input string
	}{
		{"empty string", ""},
		{"too short", "abcd"},
		{"too long", valid + "00"},
		{"non hex", strings.Repeat("zz", IdentitySize)},
		{"null byte", valid[:63] + "\x00"},
	}
	for _, tt := range tests {
		t.Run("rejects "+tt.name, func(t *testing.T) {
			_, err := ParseIdentity(tt.input)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}
}

func TestIdentityText(t *testing.T) {
	var id Identity
	id[0], id[31] = 1, 2

	text, err := id.MarshalText()
	require.NoError(t, err)

	var decoded Identity
	require.NoError(t, decoded.UnmarshalText(text))
	assert.Equal(t, id, decoded)
	assert.False(t, decoded.IsZero())
	assert.True(t, Identity{}.IsZero())
	assert.Equal(t, -1, Identity{}.Compare(id))

	_, err = IdentityFromBytes([]byte{1, 2, 3})
	require.Error(t, err)

	fromBytes, err := IdentityFromBytes(id.Bytes())
	require.NoError(t, err)
	assert.Equal(t, id, fromBytes)
}

// TestParseRecordIDs ensures registry and proposal ids share parsing rules.
func TestParseRecordIDs(t *testing.T) {
	validUUID := uuid.New().String()

	t.Run("accept valid UUID", func(t *testing.T) {
		rid, err := ParseRegistryID(validUUID)
		require.NoError(t, err)
		assert.Equal(t, validUUID, rid.String())

		pid, err := ParseProposalID(validUUID)
		require.NoError(t, err)
		assert.Equal(t, validUUID, pid.String())
	})

	for _, input := range []string{"", "invalid", uuid.Nil.String()} {
		t.Run("reject: "+input, func(t *testing.T) {
			_, errRegistry := ParseRegistryID(input)
			_, errProposal := ParseProposalID(input)
			require.Error(t, errRegistry)
			require.Error(t, errProposal)
			assert.True(t, dErrors.HasCode(errRegistry, dErrors.CodeInvalidInput))
			assert.True(t, dErrors.HasCode(errProposal, dErrors.CodeInvalidInput))
		})
	}

	t.Run("new ids are never nil", func(t *testing.T) {
		assert.False(t, NewRegistryID().IsNil())
		assert.False(t, NewProposalID().IsNil())
		assert.Len(t, NewRegistryID().Bytes(), 16)
	})
}
