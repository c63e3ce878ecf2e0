package encoder

import (
	"errors"
	"fmt"

	"github.com/soumyaonikeri/The-Classic-File-Transfer-Real-Time-File-Transfer-and-Verification/message"
)

var (
	// ErrMalformed marks a message body that does not have the shape of the
	// expected message.
	ErrMalformed = errors.New("malformed message")
	// ErrUnexpectedType marks a well formed message of the wrong kind.
	ErrUnexpectedType = errors.New("unexpected message type")
	ErrUnknown        = errors.New("unknown encoding")
)

// Encoder turns packets into message bodies and back. Decode is told which
// kind of message the reader is waiting for, because the text form of a
// metadata header and of a frame share the same shape.
type Encoder interface {
	Encode(msg *message.Packet) ([]byte, error)
	Decode(data []byte, numBytes int, expect message.MessageType) (*message.Packet, error)
	// SelfDelimiting reports whether bodies can be recovered from single
	// reads of a raw stream.
	SelfDelimiting() bool
}

func New(name string) (Encoder, error) {
	switch name {
	case "", "text":
		return TextEncoder{}, nil
	case "gob":
		return GobEncoder{}, nil
	case "bson":
		return BsonEncoder{}, nil
	case "proto":
		return ProtoEncoder{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknown, name)
}

// checkType is shared by the structured encoders, which carry the type on
// the wire.
func checkType(pkt *message.Packet, expect message.MessageType) (*message.Packet, error) {
	if !message.Accepts(expect, pkt.Type) {
		return nil, fmt.Errorf("%w: got %s, want %s", ErrUnexpectedType, pkt.Type, expect)
	}
	if pkt.Type == message.DATA && pkt.Seq < 0 {
		return nil, fmt.Errorf("%w: negative sequence number %d", ErrMalformed, pkt.Seq)
	}
	return pkt, nil
}
