// Package identity persists the user name a client writes pixels under.
package identity

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/pixelboard/internal/domain"
)

const maxUserLen = 64

// DefaultPath is the identity file under the user's config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("identity.DefaultPath: %w", err)
	}
	return filepath.Join(dir, "pixelboard", "user"), nil
}

// Store keeps a single identity string in a file.
type Store struct {
	path string
}

// NewStore returns a Store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

// Load returns the saved identity or domain.ErrNoIdentity when none is stored.
func (s *Store) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("identity.Store.Load: %w", domain.ErrNoIdentity)
	}
	if err != nil {
		return "", fmt.Errorf("identity.Store.Load: %w", err)
	}

	user := strings.TrimSpace(string(data))
	if user == "" {
		return "", fmt.Errorf("identity.Store.Load: %w", domain.ErrNoIdentity)
	}
	return user, nil
}

// Save writes user, creating the parent directory if needed.
func (s *Store) Save(user string) error {
	user, err := Normalize(user)
	if err != nil {
		return fmt.Errorf("identity.Store.Save: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("identity.Store.Save: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(user+"\n"), 0o600); err != nil {
		return fmt.Errorf("identity.Store.Save: %w", err)
	}
	return nil
}

// Resolve picks the session identity. An explicit name wins and is saved;
// otherwise the stored one is used; otherwise the user is prompted on out and
// the answer read from in. A blank answer gets a generated name.
func (s *Store) Resolve(explicit string, in io.Reader, out io.Writer) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		if err := s.Save(explicit); err != nil {
			return "", fmt.Errorf("identity.Store.Resolve: %w", err)
		}
		return Normalize(explicit)
	}

	user, err := s.Load()
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrNoIdentity) {
		log.Warn().Err(err).Str("path", s.path).Msg("identity: unreadable, prompting")
	}

	user, err = prompt(in, out)
	if err != nil {
		return "", fmt.Errorf("identity.Store.Resolve: %w", err)
	}
	if user == "" {
		user = Generate()
		log.Info().Str("user", user).Msg("identity: generated")
	}
	if err := s.Save(user); err != nil {
		return "", fmt.Errorf("identity.Store.Resolve: %w", err)
	}
	return user, nil
}

// Normalize trims surrounding space and rejects empty or oversized names.
func Normalize(user string) (string, error) {
	user = strings.TrimSpace(user)
	if user == "" {
		return "", domain.ErrNoIdentity
	}
	if len(user) > maxUserLen || strings.ContainsAny(user, "\r\n") {
		return "", fmt.Errorf("%w: invalid name %q", domain.ErrNoIdentity, user)
	}
	return user, nil
}

// Generate returns a random name of the form "user-xxxxxxxx".
func Generate() string {
	return "user-" + uuid.NewString()[:8]
}

func prompt(in io.Reader, out io.Writer) (string, error) {
	if _, err := fmt.Fprint(out, "Enter a username: "); err != nil {
		return "", err
	}
	// A *bufio.Reader passed in is reused, so no input past the line is consumed.
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
