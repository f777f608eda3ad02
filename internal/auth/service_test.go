package auth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/HoloHeri/internal/domain"
)

func newTestService(t *testing.T, usersJSON string) *Service {
	t.Helper()
	path := filepath.Join(t.TempDir(), "user.json")
	if usersJSON != "" {
		require.NoError(t, os.WriteFile(path, []byte(usersJSON), 0o600))
	}
	store := NewFileCredentialStore(path, zap.NewNop().Sugar())
	return NewService(store, NewIssuer([]byte("secret"), 7*24*time.Hour))
}

func TestLoginSuccess(t *testing.T) {
	svc := newTestService(t, `[{"username":"admin","password":"heritage"}]`)

	res, err := svc.Login(context.Background(), LoginRequest{Username: "admin", Password: "heritage"})
	require.NoError(t, err)
	assert.Equal(t, "admin", res.Username)
	assert.NotEmpty(t, res.Token)

	username, err := svc.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin", username)
}

func TestLoginMissingFields(t *testing.T) {
	svc := newTestService(t, `[{"username":"admin","password":"heritage"}]`)
	for _, req := range []LoginRequest{
		{},
		{Username: "admin"},
		{Password: "heritage"},
	} {
		_, err := svc.Login(context.Background(), req)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrValidation))
		assert.Equal(t, "Please provide both username and password", err.Error())
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	svc := newTestService(t, `[{"username":"admin","password":"heritage"}]`)
	for _, req := range []LoginRequest{
		{Username: "admin", Password: "wrong"},
		{Username: "Admin", Password: "heritage"},
		{Username: "guest", Password: "heritage"},
	} {
		_, err := svc.Login(context.Background(), req)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrUnauthorized))
		assert.Equal(t, "Invalid username or password", err.Error())
	}
}

func TestLoginUnreadableFileIsEmpty(t *testing.T) {
	for _, content := range []string{"", "not json"} {
		svc := newTestService(t, content)
		_, err := svc.Login(context.Background(), LoginRequest{Username: "admin", Password: "heritage"})
		assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	svc := newTestService(t, `[]`)
	_, err := svc.Verify("not-a-token")
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}
