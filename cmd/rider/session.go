package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"busseat/internal/reservation"
)

const sessionFileName = "session.json"

type session struct {
	BaseURL  string `json:"base_url"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Token    string `json:"access_token"`
}

func (s session) credential() reservation.Credential {
	return reservation.Credential{Token: s.Token, Username: s.Username, Role: s.Role}
}

func sessionPath(dir string) string {
	return filepath.Join(dir, sessionFileName)
}

// saveSession writes the credential owner-only since it holds a bearer token
func saveSession(dir string, s session) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(sessionPath(dir), data, 0o600)
}

// loadSession returns the zero session when nobody has logged in
func loadSession(dir string) (session, error) {
	var s session
	data, err := os.ReadFile(sessionPath(dir))
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, err
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("corrupt session file %s: %w", sessionPath(dir), err)
	}
	return s, nil
}

func clearSession(dir string) error {
	err := os.Remove(sessionPath(dir))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
