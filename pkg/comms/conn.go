package comms

import (
	"errors"
	"fmt"
	"io"

	"github.com/eglochon/hubchat/pkg/identity"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// MaxFrameSize is the largest payload a single frame can carry
const MaxFrameSize = 1<<16 - 1

var ErrMessageTooLarge = errors.New("message too large")

// writeFrame sends a 2-byte big-endian length followed by the payload
func writeFrame(w io.Writer, data []byte) error {
	if len(data) > MaxFrameSize {
		return ErrMessageTooLarge
	}
	buf := make([]byte, 2+len(data))
	buf[0], buf[1] = byte(len(data)>>8), byte(len(data))
	copy(buf[2:], data)
	_, err := w.Write(buf)
	return err
}

func readFrame(r io.Reader) ([]byte, error) {
	lenBuf := make([]byte, 2)
	if _, err := io.ReadFull(r, lenBuf); err != nil {
		return nil, err
	}
	size := int(lenBuf[0])<<8 | int(lenBuf[1])
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// sendHello introduces self to the other end of a fresh connection
func sendHello(w io.Writer, service string, self identity.Local) error {
	hello, err := structpb.NewStruct(map[string]any{
		"service": service,
		"id":      self.ID,
		"name":    self.Name,
	})
	if err != nil {
		return err
	}
	data, err := proto.Marshal(hello)
	if err != nil {
		return err
	}
	return writeFrame(w, data)
}

// recvHello reads the other end's introduction and checks it belongs to service
func recvHello(r io.Reader, service string) (identity.RemotePeer, error) {
	data, err := readFrame(r)
	if err != nil {
		return identity.RemotePeer{}, err
	}
	var hello structpb.Struct
	if err := proto.Unmarshal(data, &hello); err != nil {
		return identity.RemotePeer{}, fmt.Errorf("decode hello: %w", err)
	}
	fields := hello.GetFields()
	if got := fields["service"].GetStringValue(); got != service {
		return identity.RemotePeer{}, fmt.Errorf("hello for service %q, want %q", got, service)
	}
	return identity.NewRemotePeer(fields["id"].GetStringValue(), fields["name"].GetStringValue())
}
