package identity

import (
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrInvalidPeerID is returned for identifiers that were not produced by NewLocal
var ErrInvalidPeerID = errors.New("invalid peer id")

// RemotePeer pairs a transport-assigned ephemeral identifier with the
// participant's display name. Two peers are the same peer only if their
// identifiers match; the name is what the user sees.
type RemotePeer struct {
	ID   string
	Name string
}

// NewRemotePeer validates an identifier/name pair received from the network
func NewRemotePeer(id, name string) (RemotePeer, error) {
	if err := ValidateID(id); err != nil {
		return RemotePeer{}, err
	}
	if name == "" || Sanitize(name) != name {
		return RemotePeer{}, fmt.Errorf("invalid peer name %q", name)
	}
	return RemotePeer{ID: id, Name: name}, nil
}

// ValidateID checks that id is a URL-safe base64 encoding of an identifier
func ValidateID(id string) error {
	raw, err := base64.RawURLEncoding.DecodeString(id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPeerID, err)
	}
	if len(raw) != idSize {
		return fmt.Errorf("%w: size %d", ErrInvalidPeerID, len(raw))
	}
	return nil
}

// ShortID returns the first characters of the identifier, for logs
func (p RemotePeer) ShortID() string {
	if len(p.ID) <= 8 {
		return p.ID
	}
	return p.ID[:8]
}

func (p RemotePeer) String() string {
	return fmt.Sprintf("%s/%s", p.Name, p.ShortID())
}
