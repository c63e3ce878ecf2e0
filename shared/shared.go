package shared

import (
	"fmt"
	"io"
	"time"

	"github.com/soumyaonikeri/The-Classic-File-Transfer-Real-Time-File-Transfer-and-Verification/encoder"
	"github.com/soumyaonikeri/The-Classic-File-Transfer-Real-Time-File-Transfer-and-Verification/message"
	"github.com/soumyaonikeri/The-Classic-File-Transfer-Real-Time-File-Transfer-and-Verification/shared/transfer"
	"github.com/soumyaonikeri/The-Classic-File-Transfer-Real-Time-File-Transfer-and-Verification/transport"
)

// Session couples a connection with the framing and encoding both peers
// agreed on. It is owned by a single goroutine.
type Session struct {
	conn    transport.Conn
	reader  io.Reader
	framer  Framer
	encoder encoder.Encoder
}

func NewSession(conn transport.Conn, f Framer, e encoder.Encoder) *Session {
	return &Session{conn: conn, reader: f.Reader(conn), framer: f, encoder: e}
}

// NewSessionFromConfig picks framing and encoding by name.
func NewSessionFromConfig(conn transport.Conn, config transfer.Config) (*Session, error) {
	f, err := NewFramer(config.Framing)
	if err != nil {
		return nil, err
	}
	e, err := encoder.New(config.Encoding)
	if err != nil {
		return nil, err
	}
	if _, ok := f.(Raw); ok && !e.SelfDelimiting() {
		return nil, fmt.Errorf("encoding %q needs length framing", config.Encoding)
	}
	return NewSession(conn, f, e), nil
}

func (s *Session) Encode(pkt *message.Packet) ([]byte, error) {
	return s.encoder.Encode(pkt)
}

// WriteMessage sends an already encoded body as one message.
func (s *Session) WriteMessage(b []byte) error {
	return s.framer.WriteMessage(s.conn, b)
}

func (s *Session) SendPacket(pkt *message.Packet) (int, error) {
	b, err := s.Encode(pkt)
	if err != nil {
		return -1, err
	}
	if err := s.WriteMessage(b); err != nil {
		return -1, err
	}
	return len(b), nil
}

// ReadMessage returns the next undecoded message body.
func (s *Session) ReadMessage(max int) ([]byte, error) {
	return s.framer.ReadMessage(s.reader, max)
}

func (s *Session) Decode(data []byte, expect message.MessageType) (*message.Packet, error) {
	return s.encoder.Decode(data, len(data), expect)
}

func (s *Session) ReadPacket(expect message.MessageType, max int) (*message.Packet, error) {
	data, err := s.ReadMessage(max)
	if err != nil {
		return nil, err
	}
	return s.Decode(data, expect)
}

// Reader yields the unframed bytes of the connection.
func (s *Session) Reader() io.Reader {
	return s.reader
}

func (s *Session) Writer() io.Writer {
	return s.conn
}

func (s *Session) SetReadDeadline(t time.Time) error {
	return s.conn.SetReadDeadline(t)
}

func (s *Session) RemoteAddr() string {
	if addr := s.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

func (s *Session) Close() error {
	return s.conn.Close()
}
