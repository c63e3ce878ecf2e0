package message

type MessageType int

const (
	METADATA MessageType = iota
	DATA
	ACK
	NAK
	END
)

func (t MessageType) String() string {
	switch t {
	case METADATA:
		return "METADATA"
	case DATA:
		return "DATA"
	case ACK:
		return "ACK"
	case NAK:
		return "NAK"
	case END:
		return "END"
	default:
		return "UNKNOWN"
	}
}

// literal tokens of the text wire form
const (
	Separator = '|'
	AckPrefix = "ACK"
	NakToken  = "NAK"
	EndMarker = "END"
)

// Packet is one logical message on the connection. Only the fields relevant
// to Type are set: Name and Size for METADATA, Seq and Payload for DATA,
// Seq for ACK.
type Packet struct {
	Type    MessageType `bson:"type"`
	Seq     int64       `bson:"seq"`
	Payload []byte      `bson:"payload"`
	Name    string      `bson:"name"`
	Size    int64       `bson:"size"`
}

func NewMetadata(name string, size int64) *Packet {
	return &Packet{Type: METADATA, Name: name, Size: size}
}

func NewFrame(seq int64, payload []byte) *Packet {
	return &Packet{Type: DATA, Seq: seq, Payload: payload}
}

func NewAck(seq int64) *Packet {
	return &Packet{Type: ACK, Seq: seq}
}

func NewNak() *Packet {
	return &Packet{Type: NAK}
}

func NewEnd() *Packet {
	return &Packet{Type: END}
}

// Accepts reports whether a packet of type got may answer a read that
// expected a packet of type want. The marker ends a frame stream and a
// negative acknowledgment answers an acknowledgment wait.
func Accepts(want, got MessageType) bool {
	if want == got {
		return true
	}
	switch want {
	case DATA:
		return got == END
	case ACK:
		return got == NAK
	}
	return false
}
