package encoder

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/soumyaonikeri/The-Classic-File-Transfer-Real-Time-File-Transfer-and-Verification/message"
)

type GobEncoder struct{}

func (g GobEncoder) Encode(msg *message.Packet) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(msg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g GobEncoder) Decode(data []byte, numBytes int, expect message.MessageType) (*message.Packet, error) {
	msg := message.Packet{}
	if err := gob.NewDecoder(bytes.NewReader(data[:numBytes])).Decode(&msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return checkType(&msg, expect)
}

//gob streams carry type descriptors up front, so a body is only
//meaningful as a whole
func (g GobEncoder) SelfDelimiting() bool {
	return false
}
