package auth

import (
	"context"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/dharsanguruparan/HoloHeri/internal/domain"
)

const (
	msgMissingCredentials = "Please provide both username and password"
	msgInvalidCredentials = "Invalid username or password"
)

// LoginRequest is the login body.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate checks both fields are present.
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// LoginResult is returned on a successful login.
type LoginResult struct {
	Token    string
	Username string
}

// Service authenticates users and issues tokens.
type Service struct {
	store  CredentialStore
	issuer *Issuer
}

// NewService creates a login Service.
func NewService(store CredentialStore, issuer *Issuer) *Service {
	return &Service{store: store, issuer: issuer}
}

// Login checks the credentials and returns a signed token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if err := req.Validate(); err != nil {
		return nil, &domain.ValidationError{Message: msgMissingCredentials}
	}
	user, ok, err := s.store.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	if !ok {
		return nil, &domain.UnauthorizedError{Message: msgInvalidCredentials}
	}
	token, err := s.issuer.Issue(user.Username)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, Username: user.Username}, nil
}

// Verify returns the username carried by a valid token.
func (s *Service) Verify(token string) (string, error) {
	claims, err := s.issuer.Verify(token)
	if err != nil {
		return "", &domain.UnauthorizedError{Message: "Invalid or expired token"}
	}
	return claims.Username, nil
}
