package encoder

import (
	"fmt"

	"gopkg.in/mgo.v2/bson"

	"github.com/soumyaonikeri/The-Classic-File-Transfer-Real-Time-File-Transfer-and-Verification/message"
)

type BsonEncoder struct{}

func (b BsonEncoder) Encode(msg *message.Packet) ([]byte, error) {
	data, err := bson.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (b BsonEncoder) Decode(data []byte, numBytes int, expect message.MessageType) (pkt *message.Packet, err error) {
	//the decoder can panic on corrupted lengths
	defer func() {
		if r := recover(); r != nil {
			pkt, err = nil, fmt.Errorf("%w: %v", ErrMalformed, r)
		}
	}()
	msg := message.Packet{}
	if err := bson.Unmarshal(data[:numBytes], &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return checkType(&msg, expect)
}

func (b BsonEncoder) SelfDelimiting() bool {
	return false
}
