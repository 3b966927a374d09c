// Package authority derives the signing identity a registry delegates its
// execution rights to. The identity is a pure function of the registry id and
// its seed, so it can be recomputed anywhere and never needs to be stored.
package authority

import (
	"crypto/subtle"

	"golang.org/x/crypto/blake2b"

	"multisig/pkg/domain"
)

const domainTag = "multisig/authority/v1"

// Derive returns the authority identity for a registry.
func Derive(seed uint8, registryID domain.RegistryID) domain.Identity {
	h, _ := blake2b.New256(nil) // only fails for keys longer than 64 bytes
	h.Write([]byte(domainTag))
	h.Write(registryID.Bytes())
	h.Write([]byte{seed})

	var out domain.Identity
	copy(out[:], h.Sum(nil))
	return out
}

// Verify reports whether candidate is the authority for the registry.
func Verify(seed uint8, registryID domain.RegistryID, candidate domain.Identity) bool {
	expected := Derive(seed, registryID)
	return subtle.ConstantTimeCompare(expected[:], candidate[:]) == 1
}
