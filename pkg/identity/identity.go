package identity

import (
	"encoding/base64"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
	"unicode"

	"github.com/google/uuid"
	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/text/unicode/norm"
)

var log = logging.Logger("hubchat/identity")

const (
	// MaxNameLength is the longest display name, in characters
	MaxNameLength = 15
	// DefaultName replaces names that sanitize to nothing
	DefaultName = "Guest"

	idSize = 16
)

// Local is this node's identity: the sanitized display name and the
// ephemeral identifier derived from it for the current networking session.
type Local struct {
	Name string
	ID   string
}

// NewLocal derives a fresh ephemeral identifier for name. Every call yields
// a different identifier, even for the same name.
func NewLocal(name string) (Local, error) {
	nonce, err := uuid.NewRandom()
	if err != nil {
		return Local{}, fmt.Errorf("generate nonce: %w", err)
	}
	h, err := blake2b.New(idSize, nil)
	if err != nil {
		return Local{}, err
	}
	h.Write([]byte(name))
	h.Write(nonce[:])

	return Local{
		Name: name,
		ID:   base64.RawURLEncoding.EncodeToString(h.Sum(nil)),
	}, nil
}

// Peer returns the identity as seen by other participants
func (l Local) Peer() RemotePeer {
	return RemotePeer{ID: l.ID, Name: l.Name}
}

// Sanitize keeps letters, marks and digits, truncates to MaxNameLength
// characters and falls back to DefaultName when nothing is left.
// Sanitize(Sanitize(x)) == Sanitize(x) for every x.
func Sanitize(raw string) string {
	var b strings.Builder
	for _, r := range norm.NFC.String(raw) {
		if unicode.IsLetter(r) || unicode.IsMark(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
		}
	}

	// Dropping separators can leave composable sequences behind.
	name := []rune(norm.NFC.String(b.String()))
	if len(name) > MaxNameLength {
		name = name[:MaxNameLength]
	}
	if len(name) == 0 {
		return DefaultName
	}
	return string(name)
}

// DefaultDeviceName builds a name from the hostname plus a short random
// suffix, used when no name has been persisted yet.
func DefaultDeviceName() string {
	base, err := os.Hostname()
	if err != nil {
		log.Debugf("hostname unavailable: %v", err)
		base = "Device"
	}
	return Sanitize(fmt.Sprintf("%s #%d", base, 100+rand.IntN(900)))
}
