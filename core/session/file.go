package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// FileBackend keeps the table in a single JSON document keyed by chat id.
type FileBackend struct {
	Path string
}

type fileRecord struct {
	UserID         string    `json:"userId"`
	Email          string    `json:"email"`
	AccessToken    string    `json:"accessToken"`
	OrganizationID string    `json:"organizationId"`
	ExpireAt       time.Time `json:"expireAt"`
}

// NewFileBackend returns a backend writing to path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{Path: path}
}

// Name identifies the backend in logs.
func (b *FileBackend) Name() string { return "file" }

// LoadAll reads the document. A missing file yields an empty table.
func (b *FileBackend) LoadAll(_ context.Context) (map[int64]Session, error) {
	data, err := os.ReadFile(b.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[int64]Session{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read sessions file: %w", err)
	}

	var doc map[string]fileRecord
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse sessions file: %w", err)
	}
	out := make(map[int64]Session, len(doc))
	for key, rec := range doc {
		chatID, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse sessions file: bad chat id %q", key)
		}
		out[chatID] = Session{
			ChatID:         chatID,
			UserID:         rec.UserID,
			Email:          rec.Email,
			AccessToken:    rec.AccessToken,
			OrganizationID: rec.OrganizationID,
			ExpireAt:       rec.ExpireAt,
		}
	}
	return out, nil
}

// PersistAll rewrites the document atomically through a temp file and rename.
func (b *FileBackend) PersistAll(_ context.Context, sessions map[int64]Session) error {
	doc := make(map[string]fileRecord, len(sessions))
	for chatID, s := range sessions {
		doc[strconv.FormatInt(chatID, 10)] = fileRecord{
			UserID:         s.UserID,
			Email:          s.Email,
			AccessToken:    s.AccessToken,
			OrganizationID: s.OrganizationID,
			ExpireAt:       s.ExpireAt.UTC(),
		}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode sessions: %w", err)
	}

	dir := filepath.Dir(b.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create sessions dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".sessions-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write sessions: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync sessions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close sessions: %w", err)
	}
	if err := os.Rename(tmp.Name(), b.Path); err != nil {
		return fmt.Errorf("replace sessions file: %w", err)
	}
	return nil
}
