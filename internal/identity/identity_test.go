package identity_test

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/pixelboard/internal/domain"
	"github.com/gosuda/pixelboard/internal/identity"
)

func newStore(t *testing.T) *identity.Store {
	t.Helper()
	return identity.NewStore(filepath.Join(t.TempDir(), "nested", "user"))
}

func TestStore_LoadMissing(t *testing.T) {
	t.Parallel()

	_, err := newStore(t).Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoIdentity)
}

func TestStore_SaveThenLoad(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	require.NoError(t, s.Save("  ada  "))

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "ada", got)

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestStore_LoadBlankFile(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o700))
	require.NoError(t, os.WriteFile(s.Path(), []byte("  \n"), 0o600))

	_, err := s.Load()
	assert.ErrorIs(t, err, domain.ErrNoIdentity)
}

func TestResolve(t *testing.T) {
	t.Parallel()

	t.Run("explicit wins and is persisted", func(t *testing.T) {
		t.Parallel()
		s := newStore(t)
		require.NoError(t, s.Save("old"))

		var out bytes.Buffer
		got, err := s.Resolve("new", strings.NewReader("ignored\n"), &out)
		require.NoError(t, err)
		assert.Equal(t, "new", got)
		assert.Empty(t, out.String())

		stored, err := s.Load()
		require.NoError(t, err)
		assert.Equal(t, "new", stored)
	})

	t.Run("stored identity skips prompt", func(t *testing.T) {
		t.Parallel()
		s := newStore(t)
		require.NoError(t, s.Save("grace"))

		var out bytes.Buffer
		got, err := s.Resolve("", strings.NewReader(""), &out)
		require.NoError(t, err)
		assert.Equal(t, "grace", got)
		assert.Empty(t, out.String())
	})

	t.Run("prompts when absent", func(t *testing.T) {
		t.Parallel()
		s := newStore(t)

		var out bytes.Buffer
		got, err := s.Resolve("", strings.NewReader("  linus \nmore\n"), &out)
		require.NoError(t, err)
		assert.Equal(t, "linus", got)
		assert.Contains(t, out.String(), "username")

		stored, err := s.Load()
		require.NoError(t, err)
		assert.Equal(t, "linus", stored)
	})

	t.Run("shared reader keeps later lines", func(t *testing.T) {
		t.Parallel()
		s := newStore(t)

		in := bufio.NewReader(strings.NewReader("linus\nstatus\n"))
		got, err := s.Resolve("", in, &bytes.Buffer{})
		require.NoError(t, err)
		assert.Equal(t, "linus", got)

		rest, err := in.ReadString('\n')
		require.NoError(t, err)
		assert.Equal(t, "status\n", rest)
	})

	t.Run("answer without newline", func(t *testing.T) {
		t.Parallel()

		got, err := newStore(t).Resolve("", strings.NewReader("grace"), &bytes.Buffer{})
		require.NoError(t, err)
		assert.Equal(t, "grace", got)
	})

	t.Run("blank answer generates a name", func(t *testing.T) {
		t.Parallel()
		s := newStore(t)

		got, err := s.Resolve("", strings.NewReader("\n"), &bytes.Buffer{})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(got, "user-"))
		assert.Len(t, got, len("user-")+8)
	})

	t.Run("invalid explicit name", func(t *testing.T) {
		t.Parallel()
		_, err := newStore(t).Resolve(strings.Repeat("x", 65), nil, &bytes.Buffer{})
		assert.ErrorIs(t, err, domain.ErrNoIdentity)
	})
}

func TestGenerate_Unique(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	for range 50 {
		n := identity.Generate()
		assert.False(t, seen[n])
		seen[n] = true
	}
}
