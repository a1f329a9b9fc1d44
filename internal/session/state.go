package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

const (
	stateDirName  = ".sahayak"
	stateFileName = "current_session"
)

// StateFilePath returns the path to ~/.sahayak/current_session, creating
// the directory if needed. The file tracks which session the CLI resumes.
func StateFilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	dir := filepath.Join(home, stateDirName)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating state directory: %w", err)
	}
	return filepath.Join(dir, stateFileName), nil
}

// withStateLock runs fn while holding an exclusive flock on the state file.
// Concurrent CLI invocations (shell loops, parallel scripts) serialize here
// instead of interleaving reads and renames.
func withStateLock(path string, fn func() error) error {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("locking state file: %w", err)
	}
	defer func() { _ = lock.Unlock() }()
	return fn()
}

// LoadCurrentSessionID reads the active CLI session ID.
// A missing or empty state file returns (nil, nil); only a malformed file
// is an error.
func LoadCurrentSessionID() (*uuid.UUID, error) {
	path, err := StateFilePath()
	if err != nil {
		return nil, err
	}

	var id *uuid.UUID
	err = withStateLock(path, func() error {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return fmt.Errorf("reading state file: %w", err)
		}

		raw := strings.TrimSpace(string(data))
		if raw == "" {
			return nil
		}
		parsed, err := uuid.Parse(raw)
		if err != nil {
			return fmt.Errorf("state file %s: %w", path, err)
		}
		id = &parsed
		return nil
	})
	return id, err
}

// SaveCurrentSessionID records the active CLI session ID with an atomic
// write (temp file + rename), so a crash never leaves a half-written file.
func SaveCurrentSessionID(sessionID uuid.UUID) error {
	path, err := StateFilePath()
	if err != nil {
		return err
	}

	return withStateLock(path, func() error {
		tmp, err := os.CreateTemp(filepath.Dir(path), stateFileName+".tmp-*")
		if err != nil {
			return fmt.Errorf("creating temp state file: %w", err)
		}
		tmpName := tmp.Name()

		if _, err := tmp.WriteString(sessionID.String()); err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
			return fmt.Errorf("writing state file: %w", err)
		}
		if err := tmp.Close(); err != nil {
			_ = os.Remove(tmpName)
			return fmt.Errorf("closing state file: %w", err)
		}
		if err := os.Rename(tmpName, path); err != nil {
			_ = os.Remove(tmpName)
			return fmt.Errorf("replacing state file: %w", err)
		}
		return nil
	})
}

// ClearCurrentSessionID removes the state file. Idempotent.
func ClearCurrentSessionID() error {
	path, err := StateFilePath()
	if err != nil {
		return err
	}

	return withStateLock(path, func() error {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing state file: %w", err)
		}
		return nil
	})
}
