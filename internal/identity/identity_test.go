package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveWebUser(t *testing.T) {
	id := Resolve("42")

	assert.Equal(t, KindWebUser, id.Kind())
	assert.Equal(t, "42", id.Key())
}

func TestResolveGuestToken(t *testing.T) {
	id := Resolve("guest-xyz")

	assert.Equal(t, KindGuest, id.Kind())
	assert.Equal(t, "guest-xyz", id.Key())
}

func TestResolveFacebookKeptAsIs(t *testing.T) {
	id := Resolve("fb:999")

	assert.Equal(t, KindFacebook, id.Kind())
	assert.Equal(t, "fb:999", id.Key())
	assert.Equal(t, "999", id.PSID())
	assert.True(t, id.IsFacebook())
}

func TestResolveEmptyFallsBackToUnknownGuest(t *testing.T) {
	for _, raw := range []string{"", "   "} {
		id := Resolve(raw)

		assert.Equal(t, KindGuest, id.Kind())
		assert.Equal(t, UnknownGuestKey, id.Key())
	}
}

func TestResolveMixedDigitsIsGuest(t *testing.T) {
	// "42a" không phải id web hợp lệ -> opaque guest token
	id := Resolve("42a")

	assert.Equal(t, KindGuest, id.Kind())
	assert.Equal(t, "42a", id.Key())
}

func TestFromPSID(t *testing.T) {
	id := FromPSID("123456")

	assert.Equal(t, "fb:123456", id.Key())
	assert.True(t, id.IsFacebook())
}

func TestIsFacebookKey(t *testing.T) {
	assert.True(t, IsFacebookKey("fb:999"))
	assert.False(t, IsFacebookKey("42"))
	assert.False(t, IsFacebookKey("guest-xyz"))
}
