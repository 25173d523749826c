package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"github.com/skilllink/skilllink/internal/model"
)

// Session is a logged-in user and the bearer token that proves it.
type Session struct {
	Token string     `json:"token"`
	User  model.User `json:"usuario"`
}

// Login authenticates and makes the returned session current.
func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	var sess Session
	err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{"username": username, "password": password}, &sess)
	if err != nil {
		return nil, err
	}
	c.setSession(&sess)
	return &sess, nil
}

// Logout ends the session on the server and forgets it locally. The local
// session is dropped even when the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	if c.Session() == nil {
		return nil
	}
	err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
	c.setSession(nil)
	if errors.Is(err, ErrUnauthorized) {
		return nil
	}
	return err
}

// Me returns the current user as the server sees it.
func (c *Client) Me(ctx context.Context) (model.User, error) {
	var u model.User
	err := c.do(ctx, http.MethodGet, "/auth/me", nil, &u)
	return u, err
}

// SaveSession writes s to path as JSON, readable only by the owner.
func SaveSession(path string, s *Session) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// LoadSession reads a session saved by SaveSession. A missing file is not an
// error and yields nil.
func LoadSession(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", path, err)
	}
	if s.Token == "" {
		return nil, nil
	}
	return &s, nil
}

// RemoveSession deletes a saved session; a missing file is fine.
func RemoveSession(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
