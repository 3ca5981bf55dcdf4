package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService handles operator authentication for the market view
type AuthService struct {
	Operator     string
	PasswordHash []byte
	Secret       []byte
	SessionID    string
	TTL          time.Duration
}

// NewAuthService creates a new auth service
func NewAuthService(operator, passwordHash, secret, sessionID string) *AuthService {
	return &AuthService{
		Operator:     operator,
		PasswordHash: []byte(passwordHash),
		Secret:       []byte(secret),
		SessionID:    sessionID,
		TTL:          24 * time.Hour,
	}
}

// HashPassword returns the bcrypt hash to configure as the operator password
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	if len(password) > 72 {
		return "", fmt.Errorf("password too long (max 72 characters)")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Login verifies credentials and generates a JWT
func (s *AuthService) Login(username, password string) (string, error) {
	if username == "" || password == "" || len(s.PasswordHash) == 0 {
		return "", ErrInvalidCredentials
	}
	if username != s.Operator {
		return "", ErrInvalidCredentials
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword(s.PasswordHash, []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	// Generate JWT bound to this session
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":     username,
		"session": s.SessionID,
		"exp":     time.Now().Add(s.TTL).Unix(),
	})

	tokenString, err := token.SignedString(s.Secret)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

// GetUserFromToken extracts the operator name from a JWT issued for this session
func (s *AuthService) GetUserFromToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return s.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	if session, _ := claims["session"].(string); session != s.SessionID {
		return "", fmt.Errorf("token issued for another session")
	}
	user, ok := claims["sub"].(string)
	if !ok || user == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return user, nil
}
