package discovery

import (
	"errors"
	"fmt"

	"github.com/eglochon/hubchat/pkg/identity"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// MaxAnnouncementSize is the largest datagram the browser reads
const MaxAnnouncementSize = 1024

const (
	typeAnnounce = "announce"
	typeLeave    = "leave"
)

var errForeignService = errors.New("announcement for another service")

// announcement is the multicast payload: who is present, in which
// namespace, and where to send invitations.
type announcement struct {
	Type    string
	Service string
	Peer    identity.RemotePeer
	Port    uint16
}

func (a announcement) marshal() ([]byte, error) {
	s, err := structpb.NewStruct(map[string]any{
		"type":    a.Type,
		"service": a.Service,
		"id":      a.Peer.ID,
		"name":    a.Peer.Name,
		"port":    uint32(a.Port),
	})
	if err != nil {
		return nil, err
	}
	return proto.Marshal(s)
}

func parseAnnouncement(data []byte, service string) (announcement, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return announcement{}, err
	}
	fields := s.GetFields()
	if fields["service"].GetStringValue() != service {
		return announcement{}, errForeignService
	}

	a := announcement{
		Type:    fields["type"].GetStringValue(),
		Service: service,
	}
	if a.Type != typeAnnounce && a.Type != typeLeave {
		return announcement{}, fmt.Errorf("unknown announcement type %q", a.Type)
	}
	port := fields["port"].GetNumberValue()
	if port < 1 || port > 65535 {
		return announcement{}, fmt.Errorf("invalid port %v", port)
	}
	a.Port = uint16(port)

	p, err := identity.NewRemotePeer(fields["id"].GetStringValue(), fields["name"].GetStringValue())
	if err != nil {
		return announcement{}, err
	}
	a.Peer = p
	return a, nil
}
