package encoder

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/soumyaonikeri/The-Classic-File-Transfer-Real-Time-File-Transfer-and-Verification/message"
)

// field numbers of the packet message
const (
	fieldType    protowire.Number = 1
	fieldSeq     protowire.Number = 2
	fieldPayload protowire.Number = 3
	fieldName    protowire.Number = 4
	fieldSize    protowire.Number = 5
)

// ProtoEncoder writes packets in protobuf wire format. Zero valued fields
// are omitted, as proto3 does.
type ProtoEncoder struct{}

func (p ProtoEncoder) Encode(msg *message.Packet) ([]byte, error) {
	var b []byte
	if msg.Type != 0 {
		b = protowire.AppendTag(b, fieldType, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(msg.Type))
	}
	if msg.Seq != 0 {
		b = protowire.AppendTag(b, fieldSeq, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeZigZag(msg.Seq))
	}
	if len(msg.Payload) > 0 {
		b = protowire.AppendTag(b, fieldPayload, protowire.BytesType)
		b = protowire.AppendBytes(b, msg.Payload)
	}
	if msg.Name != "" {
		b = protowire.AppendTag(b, fieldName, protowire.BytesType)
		b = protowire.AppendString(b, msg.Name)
	}
	if msg.Size != 0 {
		b = protowire.AppendTag(b, fieldSize, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeZigZag(msg.Size))
	}
	return b, nil
}

func (p ProtoEncoder) Decode(data []byte, numBytes int, expect message.MessageType) (*message.Packet, error) {
	b := data[:numBytes]
	msg := message.Packet{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]
		switch {
		case num == fieldType && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: type: %v", ErrMalformed, protowire.ParseError(n))
			}
			msg.Type = message.MessageType(v)
			b = b[n:]
		case num == fieldSeq && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: seq: %v", ErrMalformed, protowire.ParseError(n))
			}
			msg.Seq = protowire.DecodeZigZag(v)
			b = b[n:]
		case num == fieldPayload && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: payload: %v", ErrMalformed, protowire.ParseError(n))
			}
			msg.Payload = v
			b = b[n:]
		case num == fieldName && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: name: %v", ErrMalformed, protowire.ParseError(n))
			}
			msg.Name = v
			b = b[n:]
		case num == fieldSize && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: size: %v", ErrMalformed, protowire.ParseError(n))
			}
			msg.Size = protowire.DecodeZigZag(v)
			b = b[n:]
		default:
			//skip unknown fields
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return checkType(&msg, expect)
}

func (p ProtoEncoder) SelfDelimiting() bool {
	return false
}
