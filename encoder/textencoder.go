package encoder

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/soumyaonikeri/The-Classic-File-Transfer-Real-Time-File-Transfer-and-Verification/message"
)

// TextEncoder speaks the plain wire form: "name|size" headers, "seq|payload"
// frames, "ACK<seq>", "NAK" and "END".
type TextEncoder struct{}

func (TextEncoder) Encode(msg *message.Packet) ([]byte, error) {
	switch msg.Type {
	case message.METADATA:
		if bytes.IndexByte([]byte(msg.Name), message.Separator) >= 0 {
			return nil, fmt.Errorf("%w: file name %q contains separator", ErrMalformed, msg.Name)
		}
		return []byte(msg.Name + string(message.Separator) + strconv.FormatInt(msg.Size, 10)), nil
	case message.DATA:
		b := make([]byte, 0, len(msg.Payload)+20)
		b = strconv.AppendInt(b, msg.Seq, 10)
		b = append(b, message.Separator)
		return append(b, msg.Payload...), nil
	case message.ACK:
		return strconv.AppendInt([]byte(message.AckPrefix), msg.Seq, 10), nil
	case message.NAK:
		return []byte(message.NakToken), nil
	case message.END:
		return []byte(message.EndMarker), nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnexpectedType, msg.Type)
}

func (TextEncoder) Decode(data []byte, numBytes int, expect message.MessageType) (*message.Packet, error) {
	body := data[:numBytes]
	switch expect {
	case message.METADATA:
		return decodeMetadata(body)
	case message.DATA:
		return decodeFrame(body)
	case message.ACK:
		return decodeAck(body)
	}
	return nil, fmt.Errorf("%w: cannot decode text as %s", ErrUnexpectedType, expect)
}

func (TextEncoder) SelfDelimiting() bool {
	return true
}

func decodeMetadata(body []byte) (*message.Packet, error) {
	fields := bytes.Split(body, []byte{message.Separator})
	if len(fields) != 2 {
		return nil, fmt.Errorf("%w: metadata has %d fields", ErrMalformed, len(fields))
	}
	size, err := strconv.ParseInt(string(bytes.TrimSpace(fields[1])), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: metadata size: %v", ErrMalformed, err)
	}
	if size < 0 {
		return nil, fmt.Errorf("%w: negative size %d", ErrMalformed, size)
	}
	return message.NewMetadata(string(fields[0]), size), nil
}

func decodeFrame(body []byte) (*message.Packet, error) {
	if string(bytes.TrimSpace(body)) == message.EndMarker {
		return message.NewEnd(), nil
	}
	i := bytes.IndexByte(body, message.Separator)
	if i < 0 {
		return nil, fmt.Errorf("%w: frame without separator", ErrMalformed)
	}
	seq, err := strconv.ParseInt(string(body[:i]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: sequence number: %v", ErrMalformed, err)
	}
	if seq < 0 {
		return nil, fmt.Errorf("%w: negative sequence number %d", ErrMalformed, seq)
	}
	return message.NewFrame(seq, body[i+1:]), nil
}

func decodeAck(body []byte) (*message.Packet, error) {
	token := bytes.TrimSpace(body)
	if string(token) == message.NakToken {
		return message.NewNak(), nil
	}
	if !bytes.HasPrefix(token, []byte(message.AckPrefix)) {
		return nil, fmt.Errorf("%w: acknowledgment %q", ErrMalformed, token)
	}
	seq, err := strconv.ParseInt(string(token[len(message.AckPrefix):]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: acknowledgment %q: %v", ErrMalformed, token, err)
	}
	return message.NewAck(seq), nil
}
