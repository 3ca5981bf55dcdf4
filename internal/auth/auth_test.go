package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestService(t *testing.T) *AuthService {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	return NewAuthService("operator", string(hash), "test-secret", "session-1")
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("password123")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("password123")))

	_, err = HashPassword("")
	assert.Error(t, err)

	_, err = HashPassword(strings.Repeat("a", 73))
	assert.Error(t, err)
}

func TestAuthService_Login(t *testing.T) {
	s := newTestService(t)

	tests := []struct {
		name        string
		username    string
		password    string
		expectError bool
	}{
		{name: "Success", username: "operator", password: "password123"},
		{name: "WrongPassword", username: "operator", password: "wrong", expectError: true},
		{name: "WrongUser", username: "alice", password: "password123", expectError: true},
		{name: "EmptyPassword", username: "operator", password: "", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := s.Login(tt.username, tt.password)
			if tt.expectError {
				assert.ErrorIs(t, err, ErrInvalidCredentials)
				assert.Empty(t, token)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, token)
		})
	}
}

func TestAuthService_NoPasswordConfigured(t *testing.T) {
	s := NewAuthService("operator", "", "test-secret", "session-1")
	_, err := s.Login("operator", "anything")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_GetUserFromToken(t *testing.T) {
	s := newTestService(t)

	token, err := s.Login("operator", "password123")
	require.NoError(t, err)

	user, err := s.GetUserFromToken(token)
	require.NoError(t, err)
	assert.Equal(t, "operator", user)

	other := *s
	other.SessionID = "session-2"
	_, err = other.GetUserFromToken(token)
	assert.Error(t, err, "token from another session must be rejected")

	wrongKey := *s
	wrongKey.Secret = []byte("other-secret")
	_, err = wrongKey.GetUserFromToken(token)
	assert.Error(t, err)

	_, err = s.GetUserFromToken("not-a-token")
	assert.Error(t, err)
}

func TestAuthService_ExpiredToken(t *testing.T) {
	s := newTestService(t)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":     "operator",
		"session": "session-1",
		"exp":     time.Now().Add(-time.Hour).Unix(),
	})
	tokenString, err := expired.SignedString(s.Secret)
	require.NoError(t, err)

	_, err = s.GetUserFromToken(tokenString)
	assert.Error(t, err)
}

func TestAuthService_RejectsOtherSigningMethod(t *testing.T) {
	s := newTestService(t)

	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub":     "operator",
		"session": "session-1",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	tokenString, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = s.GetUserFromToken(tokenString)
	assert.Error(t, err)
}
