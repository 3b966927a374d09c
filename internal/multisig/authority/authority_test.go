package authority

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"multisig/pkg/domain"
)

func TestDerive(t *testing.T) {
	registryID := domain.NewRegistryID()

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, Derive(3, registryID), Derive(3, registryID))
	})

	t.Run("seed changes the authority", func(t *testing.T) {
		assert.NotEqual(t, Derive(3, registryID), Derive(4, registryID))
	})

	t.Run("registry changes the authority", func(t *testing.T) {
		assert.NotEqual(t, Derive(3, registryID), Derive(3, domain.NewRegistryID()))
	})

	t.Run("never the zero identity", func(t *testing.T) {
		assert.False(t, Derive(0, registryID).IsZero())
	})
}

func TestVerify(t *testing.T) {
	registryID := domain.NewRegistryID()
	auth := Derive(9, registryID)

	assert.True(t, Verify(9, registryID, auth))
	assert.False(t, Verify(8, registryID, auth))

	tampered := auth
	tampered[0] ^= 0xFF
	assert.False(t, Verify(9, registryID, tampered))
}
