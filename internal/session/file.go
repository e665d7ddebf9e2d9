package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/felixgeelhaar/candidash/internal/fsutil"
)

// DefaultFileName is the session file name inside the candidash home directory.
const DefaultFileName = "session.json"

// fileRecord is the on-disk layout. Keys match the storage keys the admin
// console has always used, so tooling reading them keeps working.
// Permission codes are opaque and kept as a list, never joined.
type fileRecord struct {
	Token       string      `json:"adminToken"`
	User        fileUser    `json:"adminUser"`
	UserID      string      `json:"adminUserId"`
	Permissions []string    `json:"adminPermissions"`
	UserContext fileContext `json:"adminUserContext"`
}

type fileUser struct {
	UserID    int64     `json:"userId"`
	Username  string    `json:"username"`
	FirstName string    `json:"firstName,omitempty"`
	LastName  string    `json:"lastName,omitempty"`
	Email     string    `json:"email,omitempty"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type fileContext struct {
	RoleName string `json:"roleName"`
	Scope
}

// FileStore persists the session as a single JSON file.
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultPath returns ~/.candidash/session.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".candidash", DefaultFileName), nil
}

// Path returns the backing file path.
func (f *FileStore) Path() string {
	return f.path
}

// Save atomically replaces the session file.
func (f *FileStore) Save(_ context.Context, s *Session) error {
	if s == nil {
		return errors.New("session: cannot save nil session")
	}

	rec := fileRecord{
		Token: s.Token,
		User: fileUser{
			UserID:    s.UserID,
			Username:  s.Username,
			FirstName: s.FirstName,
			LastName:  s.LastName,
			Email:     s.Email,
			ExpiresAt: s.ExpiresAt,
			CreatedAt: s.CreatedAt,
		},
		UserID:      strconv.FormatInt(s.UserID, 10),
		Permissions: s.Permissions,
		UserContext: fileContext{RoleName: s.RoleName, Scope: s.Scope},
	}

	if err := fsutil.WriteRecord(f.path, rec, 0o600); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Load reads the session file.
func (f *FileStore) Load(_ context.Context) (*Session, error) {
	var rec fileRecord
	if err := fsutil.ReadRecord(f.path, &rec); err != nil {
		switch {
		case errors.Is(err, fsutil.ErrNotExist):
			return nil, ErrNotFound
		case errors.Is(err, fsutil.ErrChecksum):
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		default:
			return nil, fmt.Errorf("load session: %w", err)
		}
	}

	if rec.Token == "" || rec.UserID != strconv.FormatInt(rec.User.UserID, 10) {
		return nil, fmt.Errorf("%w: inconsistent fields", ErrCorrupt)
	}

	return &Session{
		UserID:      rec.User.UserID,
		Username:    rec.User.Username,
		FirstName:   rec.User.FirstName,
		LastName:    rec.User.LastName,
		Email:       rec.User.Email,
		RoleName:    rec.UserContext.RoleName,
		Scope:       rec.UserContext.Scope,
		Permissions: rec.Permissions,
		Token:       rec.Token,
		ExpiresAt:   rec.User.ExpiresAt,
		CreatedAt:   rec.User.CreatedAt,
	}, nil
}

// Clear removes the session file.
func (f *FileStore) Clear(_ context.Context) error {
	if err := fsutil.RemoveRecord(f.path); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
