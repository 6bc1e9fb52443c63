package services

import (
	"fmt"
	"log"
	"time"

	"github.com/dgrijalva/jwt-go"

	"minime/internal/models"
)

// SessionService issues and validates the JWT session tokens the HTTP layer
// uses to resolve the acting user. There are no passwords anywhere in this
// system (usernames are plaintext identifiers); the token only names the
// session, it proves nothing.
type SessionService struct {
	jwtSecret  []byte
	tokenDurat time.Duration
}

// NewSessionService creates a new SessionService.
func NewSessionService(jwtSecret string) *SessionService {
	return &SessionService{
		jwtSecret:  []byte(jwtSecret),
		tokenDurat: 24 * time.Hour, // Token valid for 24 hours
	}
}

// IssueToken creates a session token for the given user.
func (s *SessionService) IssueToken(user *models.UserProfile) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.UserID,
		"username": user.UserName,
		"exp":      time.Now().Add(s.tokenDurat).Unix(),
		"iat":      time.Now().Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates a session token, returning the claims
// if valid.
func (s *SessionService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		log.Printf("Token validation error: %v", err)
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}
