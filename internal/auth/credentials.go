// Package auth implements the single flat-file login: credentials are read
// from a JSON array and a successful login yields a signed token.
package auth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// User is one entry of the credentials file.
type User struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CredentialStore checks a username and password pair.
type CredentialStore interface {
	Authenticate(ctx context.Context, username, password string) (*User, bool, error)
}

// FileCredentialStore reads a JSON array of users on every call, so edits to
// the file apply without a restart. Passwords are stored in plain text.
type FileCredentialStore struct {
	path string
	log  *zap.SugaredLogger
}

// NewFileCredentialStore creates a store backed by path.
func NewFileCredentialStore(path string, log *zap.SugaredLogger) *FileCredentialStore {
	if log == nil {
		log = zap.S()
	}
	return &FileCredentialStore{path: path, log: log}
}

// Authenticate reports whether a user with exactly this username and password
// exists. An unreadable or malformed file is logged and treated as empty.
func (s *FileCredentialStore) Authenticate(_ context.Context, username, password string) (*User, bool, error) {
	users, err := s.load()
	if err != nil {
		s.log.Errorw("failed to read credentials file", "path", s.path, "error", err)
		return nil, false, nil
	}
	for i := range users {
		u := &users[i]
		nameOK := subtle.ConstantTimeCompare([]byte(u.Username), []byte(username)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(u.Password), []byte(password)) == 1
		if nameOK && passOK {
			return &User{Username: u.Username}, true, nil
		}
	}
	return nil, false, nil
}

func (s *FileCredentialStore) load() ([]User, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	var users []User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return users, nil
}
