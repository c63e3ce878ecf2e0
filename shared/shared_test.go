package shared

import (
	"bytes"
	"errors"
	"io"
	"net"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soumyaonikeri/The-Classic-File-Transfer-Real-Time-File-Transfer-and-Verification/encoder"
	"github.com/soumyaonikeri/The-Classic-File-Transfer-Real-Time-File-Transfer-and-Verification/message"
	"github.com/soumyaonikeri/The-Classic-File-Transfer-Real-Time-File-Transfer-and-Verification/shared/transfer"
)

func TestLengthPrefixedBoundaries(t *testing.T) {
	var buf bytes.Buffer
	f := LengthPrefixed{}
	require.NoError(t, f.WriteMessage(&buf, []byte("0|abc")))
	require.NoError(t, f.WriteMessage(&buf, []byte("")))
	require.NoError(t, f.WriteMessage(&buf, []byte("END")))
	buf.WriteString("raw bulk bytes")

	// byte-at-a-time delivery must not move the boundaries
	r := f.Reader(iotest.OneByteReader(&buf))
	msg, err := f.ReadMessage(r, 64)
	require.NoError(t, err)
	assert.Equal(t, "0|abc", string(msg))
	msg, err = f.ReadMessage(r, 64)
	require.NoError(t, err)
	assert.Empty(t, msg)
	msg, err = f.ReadMessage(r, 64)
	require.NoError(t, err)
	assert.Equal(t, "END", string(msg))

	rest, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "raw bulk bytes", string(rest))

	_, err = f.ReadMessage(r, 64)
	assert.ErrorIs(t, err, io.EOF)
}

func TestLengthPrefixedLimits(t *testing.T) {
	var buf bytes.Buffer
	f := LengthPrefixed{}
	require.NoError(t, f.WriteMessage(&buf, bytes.Repeat([]byte("x"), 100)))
	_, err := f.ReadMessage(&buf, 99)
	assert.ErrorIs(t, err, ErrMessageTooLarge)

	buf.Reset()
	require.NoError(t, f.WriteMessage(&buf, []byte("truncated body")))
	short := bytes.NewReader(buf.Bytes()[:8])
	_, err = f.ReadMessage(short, 64)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestLengthPrefixedResumesAfterTimeout(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	var msg bytes.Buffer
	f := LengthPrefixed{}
	require.NoError(t, f.WriteMessage(&msg, []byte("ACK0")))
	require.NoError(t, f.WriteMessage(&msg, []byte("ACK1")))
	wire := msg.Bytes()

	resume := make(chan struct{})
	go func() {
		// the header arrives, the body only after the reader gave up once
		a.Write(wire[:4])
		<-resume
		a.Write(wire[4:])
	}()

	r := f.Reader(b)
	b.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	_, err := f.ReadMessage(r, 64)
	var ne net.Error
	require.True(t, errors.As(err, &ne) && ne.Timeout(), "want timeout, got %v", err)

	close(resume)
	b.SetReadDeadline(time.Time{})
	got, err := f.ReadMessage(r, 64)
	require.NoError(t, err)
	assert.Equal(t, "ACK0", string(got))
	got, err = f.ReadMessage(r, 64)
	require.NoError(t, err)
	assert.Equal(t, "ACK1", string(got))
}

func TestRawOneReadOneMessage(t *testing.T) {
	f := Raw{}
	r := bytes.NewReader([]byte("ACK1ACK2"))
	msg, err := f.ReadMessage(r, 4)
	require.NoError(t, err)
	assert.Equal(t, "ACK1", string(msg))
	msg, err = f.ReadMessage(r, 10)
	require.NoError(t, err)
	assert.Equal(t, "ACK2", string(msg))
	_, err = f.ReadMessage(r, 10)
	assert.ErrorIs(t, err, io.EOF)
}

func TestNewFramer(t *testing.T) {
	f, err := NewFramer("")
	require.NoError(t, err)
	assert.IsType(t, LengthPrefixed{}, f)
	f, err = NewFramer("raw")
	require.NoError(t, err)
	assert.IsType(t, Raw{}, f)
	_, err = NewFramer("slip")
	assert.Error(t, err)
}

func TestSessionPacketExchange(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	config := transfer.NewConfig()
	config.Encoding = "proto"
	left, err := NewSessionFromConfig(a, config)
	require.NoError(t, err)
	right, err := NewSessionFromConfig(b, config)
	require.NoError(t, err)

	go func() {
		left.SendPacket(message.NewFrame(5, []byte("hello")))
	}()
	pkt, err := right.ReadPacket(message.DATA, config.FrameReadSize())
	require.NoError(t, err)
	assert.Equal(t, int64(5), pkt.Seq)
	assert.Equal(t, "hello", string(pkt.Payload))
}

func TestSessionRefusesBinaryOverRaw(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	config := transfer.NewConfig()
	config.Framing = "raw"
	config.Encoding = "gob"
	_, err := NewSessionFromConfig(a, config)
	assert.Error(t, err)

	config.Encoding = "nope"
	_, err = NewSessionFromConfig(a, config)
	assert.ErrorIs(t, err, encoder.ErrUnknown)
}
