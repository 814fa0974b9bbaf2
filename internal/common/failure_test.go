package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthFailure_IsMatchesSentinelOfKind(t *testing.T) {
	f := NewFailure(KindNetworkError, "").WithCause(errors.New("dial tcp: refused"))

	require.ErrorIs(t, f, ErrNetwork)
	require.NotErrorIs(t, f, ErrServer)
	assert.Equal(t, DefaultMessage(KindNetworkError), f.Message)
}

func TestAuthFailure_IsMatchesSameKindThroughWrapping(t *testing.T) {
	f := NewFailure(KindSessionExpired, "gone").WithStatus(401)
	wrapped := fmt.Errorf("profile: %w", f)

	require.ErrorIs(t, wrapped, ErrSessionExpired)
	require.ErrorIs(t, wrapped, &AuthFailure{Kind: KindSessionExpired})
	assert.Equal(t, KindSessionExpired, AsFailure(wrapped).Kind)
}

func TestAuthFailure_ErrorIncludesStatus(t *testing.T) {
	f := NewFailure(KindUnknownError, "teapot").WithStatus(418)
	assert.Equal(t, "UNKNOWN_ERROR (status 418): teapot", f.Error())

	g := NewFailure(KindNetworkError, "offline")
	assert.Equal(t, "NETWORK_ERROR: offline", g.Error())
}

func TestAsFailure_WrapsForeignErrors(t *testing.T) {
	require.Nil(t, AsFailure(nil))

	base := errors.New("boom")
	f := AsFailure(base)
	require.NotNil(t, f)
	assert.Equal(t, KindUnknownError, f.Kind)
	require.ErrorIs(t, f, base)

	orig := NewFailure(KindNotFound, "")
	assert.Same(t, orig, AsFailure(fmt.Errorf("x: %w", orig)))
}

func TestFailureKind_DefinitelyInvalid(t *testing.T) {
	tests := []struct {
		kind FailureKind
		want bool
	}{
		{KindInvalidToken, true},
		{KindSessionExpired, true},
		{KindNetworkError, false},
		{KindServerError, false},
		{KindInvalidCredentials, false},
		{KindUnknownError, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.DefinitelyInvalid())
		})
	}
}

func TestWipeByteArray_ZerosBufferAndIsNilSafe(t *testing.T) {
	buf := []byte{1, 2, 3}
	WipeByteArray(buf)
	assert.Equal(t, []byte{0, 0, 0}, buf)
	WipeByteArray(nil)
}

func TestGenerateRandByteArray_Length(t *testing.T) {
	assert.Len(t, GenerateRandByteArray(24), 24)
	assert.Empty(t, GenerateRandByteArray(0))
}
