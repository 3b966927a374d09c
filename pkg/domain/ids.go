package domain

import (
	"bytes"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"

	dErrors "multisig/pkg/domain-errors"
)

// IdentitySize is the width of an identity key in bytes.
const IdentitySize = 32

// Identity is an opaque 32-byte key naming an owner, a target, a resource or a
// derived authority. It is a value type so it can be used as a map key and
// compared with ==.
type Identity [IdentitySize]byte

// ParseIdentity decodes a lowercase or uppercase hex string of exactly 64 characters.
func ParseIdentity(s string) (Identity, error) {
	var out Identity
	s = strings.TrimSpace(s)
	if len(s) != hex.EncodedLen(IdentitySize) {
		return out, dErrors.New(dErrors.CodeInvalidInput, "identity must be 64 hex characters")
	}
	if _, err := hex.Decode(out[:], []byte(s)); err != nil {
		return out, dErrors.New(dErrors.CodeInvalidInput, "identity must be hex encoded")
	}
	return out, nil
}

// IdentityFromBytes copies b into an Identity. b must be exactly 32 bytes.
func IdentityFromBytes(b []byte) (Identity, error) {
	var out Identity
	if len(b) != IdentitySize {
		return out, dErrors.New(dErrors.CodeInvalidInput, "identity must be 32 bytes")
	}
	copy(out[:], b)
	return out, nil
}

func (i Identity) String() string {
	return hex.EncodeToString(i[:])
}

func (i Identity) Bytes() []byte {
	out := make([]byte, IdentitySize)
	copy(out, i[:])
	return out
}

func (i Identity) IsZero() bool {
	return i == Identity{}
}

// Compare orders identities byte-wise.
func (i Identity) Compare(other Identity) int {
	return bytes.Compare(i[:], other[:])
}

func (i Identity) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

func (i *Identity) UnmarshalText(text []byte) error {
	parsed, err := ParseIdentity(string(text))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

// RegistryID identifies an owner registry record.
type RegistryID uuid.UUID

// ProposalID identifies a proposal record.
type ProposalID uuid.UUID

func NewRegistryID() RegistryID { return RegistryID(uuid.New()) }
func NewProposalID() ProposalID { return ProposalID(uuid.New()) }

func ParseRegistryID(s string) (RegistryID, error) {
	u, err := parseUUID(s, "registry id")
	return RegistryID(u), err
}

func ParseProposalID(s string) (ProposalID, error) {
	u, err := parseUUID(s, "proposal id")
	return ProposalID(u), err
}

func (id RegistryID) String() string { return uuid.UUID(id).String() }
func (id RegistryID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id RegistryID) Bytes() []byte  { u := uuid.UUID(id); return u[:] }

func (id ProposalID) String() string { return uuid.UUID(id).String() }
func (id ProposalID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ProposalID) Bytes() []byte  { u := uuid.UUID(id); return u[:] }

func (id RegistryID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id ProposalID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *RegistryID) UnmarshalText(text []byte) error {
	parsed, err := ParseRegistryID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *ProposalID) UnmarshalText(text []byte) error {
	parsed, err := ParseProposalID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func parseUUID(s, name string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, name+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+name+" format")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, name+" cannot be nil")
	}
	return u, nil
}
