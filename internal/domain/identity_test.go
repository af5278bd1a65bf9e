package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentityWireID(t *testing.T) {
	assert.Equal(t, uint64(7), NewUserIdentity(7).WireID())
	assert.Equal(t, AnonymousUserID, AnonymousIdentity().WireID())
	assert.Equal(t, AnonymousUserID, Identity{}.WireID())
	assert.Equal(t, "7", NewUserIdentity(7).String())
}
