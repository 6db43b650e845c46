package auth

import (
	"context"
	"strings"

	domuser "example.com/storefront/app/internal/domain/user"
)

type Claims struct {
	UserID   int64
	RoleCode domuser.RoleCode
	Email    string
	Name     string
}

type TokenService interface {
	GenerateToken(c Claims) (string, error)
	ParseToken(token string) (*Claims, error)
}

// Service verifies access tokens. Tokens are issued elsewhere.
type Service struct {
	tokens TokenService
}

func NewService(tokens TokenService) *Service {
	return &Service{tokens: tokens}
}

// Authenticate resolves an Authorization header value of the form
// "Bearer <token>" into the caller's claims.
func (s *Service) Authenticate(ctx context.Context, header string) (*Claims, error) {
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return nil, domuser.ErrUnauthorized
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return nil, domuser.ErrUnauthorized
	}

	claims, err := s.tokens.ParseToken(token)
	if err != nil {
		return nil, domuser.ErrUnauthorized
	}
	if claims.UserID <= 0 || !claims.RoleCode.IsValid() {
		return nil, domuser.ErrUnauthorized
	}
	return claims, nil
}
