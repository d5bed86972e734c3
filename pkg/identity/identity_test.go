package identity

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"", "Guest"},
		{"   ", "Guest"},
		{"!!!", "Guest"},
		{"Alice 42!", "Alice42"},
		{"Bob", "Bob"},
		{"a-very_long name 123456", "averylongname12"},
		{"Zoë's iPhone", "ZoësiPhone"},
		{"Zé #7", "Zé7"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Sanitize(tc.raw), "Sanitize(%q)", tc.raw)
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	inputs := []string{
		"", "Guest", "Alice 42!", "e!\u0301x", "日本語 テキスト 1234567890123",
		strings.Repeat("x", 40), "tab\tnew\nline", "🙂 smile 🙂",
	}
	for _, in := range inputs {
		once := Sanitize(in)
		assert.Equal(t, once, Sanitize(once), "input %q", in)
		assert.LessOrEqual(t, len([]rune(once)), MaxNameLength)
		for _, r := range once {
			assert.True(t, unicode.IsLetter(r) || unicode.IsMark(r) || unicode.IsNumber(r), "rune %q in %q", r, once)
		}
	}
}

func TestNewLocalFreshIDs(t *testing.T) {
	a, err := NewLocal("Alice")
	require.NoError(t, err)
	b, err := NewLocal("Alice")
	require.NoError(t, err)

	assert.Equal(t, "Alice", a.Name)
	assert.NotEqual(t, a.ID, b.ID)
	assert.NoError(t, ValidateID(a.ID))
	assert.Equal(t, RemotePeer{ID: a.ID, Name: "Alice"}, a.Peer())
}

func TestNewRemotePeer(t *testing.T) {
	local, err := NewLocal("Bob")
	require.NoError(t, err)

	p, err := NewRemotePeer(local.ID, "Bob")
	require.NoError(t, err)
	assert.Equal(t, local.Peer(), p)

	_, err = NewRemotePeer("not base64!", "Bob")
	assert.ErrorIs(t, err, ErrInvalidPeerID)

	_, err = NewRemotePeer("AAAA", "Bob")
	assert.ErrorIs(t, err, ErrInvalidPeerID)

	_, err = NewRemotePeer(local.ID, "Bob Smith")
	assert.Error(t, err)
}

func TestStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "profile.json")
	s := NewStore(path)

	name, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, name)

	require.NoError(t, s.Save("Alice42"))
	name, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, "Alice42", name)
	name, registered := LoadName(s)
	assert.Equal(t, "Alice42", name)
	assert.True(t, registered)

	require.NoError(t, s.Clear())
	name, err = s.Load()
	require.NoError(t, err)
	assert.Empty(t, name)

	generated, registered := LoadName(s)
	assert.False(t, registered)
	assert.Equal(t, generated, Sanitize(generated))
}

type brokenLoader struct{}

func (brokenLoader) Load() (string, error) { return "", errors.New("corrupt profile") }

func TestLoadNameFallsBackOnError(t *testing.T) {
	name, registered := LoadName(brokenLoader{})
	assert.False(t, registered)
	assert.NotEmpty(t, name)
	assert.Equal(t, name, Sanitize(name))
}

func TestDefaultPath(t *testing.T) {
	assert.Equal(t, filepath.Join("var", "hub", "profile.json"), DefaultPath(filepath.Join("var", "hub")))
	assert.Equal(t, "profile.json", filepath.Base(DefaultPath("")))
}
