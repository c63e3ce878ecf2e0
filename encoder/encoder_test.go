package encoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soumyaonikeri/The-Classic-File-Transfer-Real-Time-File-Transfer-and-Verification/message"
)

func TestTextWireForms(t *testing.T) {
	e := TextEncoder{}
	tests := []struct {
		pkt  *message.Packet
		want string
	}{
		{message.NewMetadata("friends.txt", 2500), "friends.txt|2500"},
		{message.NewFrame(7, []byte("payload|with|pipes")), "7|payload|with|pipes"},
		{message.NewFrame(0, nil), "0|"},
		{message.NewAck(12), "ACK12"},
		{message.NewNak(), "NAK"},
		{message.NewEnd(), "END"},
	}
	for _, tt := range tests {
		b, err := e.Encode(tt.pkt)
		require.NoError(t, err)
		assert.Equal(t, tt.want, string(b))
	}
}

func TestTextRejectsSeparatorInName(t *testing.T) {
	_, err := TextEncoder{}.Encode(message.NewMetadata("a|b", 1))
	assert.ErrorIs(t, err, ErrMalformed)
}

func decodeText(t *testing.T, s string, expect message.MessageType) (*message.Packet, error) {
	t.Helper()
	b := []byte(s)
	return TextEncoder{}.Decode(b, len(b), expect)
}

func TestTextDecodeFrame(t *testing.T) {
	pkt, err := decodeText(t, "3|a|b", message.DATA)
	require.NoError(t, err)
	assert.Equal(t, message.DATA, pkt.Type)
	assert.Equal(t, int64(3), pkt.Seq)
	// only the first separator splits
	assert.Equal(t, "a|b", string(pkt.Payload))

	pkt, err = decodeText(t, " END\n", message.DATA)
	require.NoError(t, err)
	assert.Equal(t, message.END, pkt.Type)

	_, err = decodeText(t, "no separator here", message.DATA)
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = decodeText(t, "x1|data", message.DATA)
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = decodeText(t, "-1|data", message.DATA)
	assert.ErrorIs(t, err, ErrMalformed)

	// the marker is only recognised on its own
	_, err = decodeText(t, "ENDING", message.DATA)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestTextDecodeMetadata(t *testing.T) {
	pkt, err := decodeText(t, "report.pdf|2048", message.METADATA)
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", pkt.Name)
	assert.Equal(t, int64(2048), pkt.Size)

	for _, bad := range []string{"report.pdf", "a|b|3", "report.pdf|big", "report.pdf|-4"} {
		_, err := decodeText(t, bad, message.METADATA)
		assert.ErrorIs(t, err, ErrMalformed, bad)
	}
}

func TestTextDecodeAck(t *testing.T) {
	pkt, err := decodeText(t, "ACK41", message.ACK)
	require.NoError(t, err)
	assert.Equal(t, message.ACK, pkt.Type)
	assert.Equal(t, int64(41), pkt.Seq)

	pkt, err = decodeText(t, "NAK", message.ACK)
	require.NoError(t, err)
	assert.Equal(t, message.NAK, pkt.Type)

	for _, bad := range []string{"ACK", "ACKX", "OK1", ""} {
		_, err := decodeText(t, bad, message.ACK)
		assert.ErrorIs(t, err, ErrMalformed, bad)
	}
}

func TestStructuredEncoders(t *testing.T) {
	packets := []*message.Packet{
		message.NewMetadata("movie.mp4", 1<<33),
		message.NewFrame(0, []byte("first")),
		message.NewFrame(99, []byte{0, 1, 2, '|', 0xff}),
		message.NewAck(99),
		message.NewNak(),
		message.NewEnd(),
	}
	expect := map[message.MessageType]message.MessageType{
		message.METADATA: message.METADATA,
		message.DATA:     message.DATA,
		message.END:      message.DATA,
		message.ACK:      message.ACK,
		message.NAK:      message.ACK,
	}

	for _, name := range []string{"gob", "bson", "proto"} {
		e, err := New(name)
		require.NoError(t, err)
		assert.False(t, e.SelfDelimiting(), name)
		for _, pkt := range packets {
			b, err := e.Encode(pkt)
			require.NoError(t, err, name)
			got, err := e.Decode(b, len(b), expect[pkt.Type])
			require.NoError(t, err, "%s %s", name, pkt.Type)
			assert.Equal(t, pkt.Type, got.Type, name)
			assert.Equal(t, pkt.Seq, got.Seq, name)
			assert.Equal(t, string(pkt.Payload), string(got.Payload), name)
			assert.Equal(t, pkt.Name, got.Name, name)
			assert.Equal(t, pkt.Size, got.Size, name)
		}
	}
}

func TestStructuredEncodersRejectWrongKind(t *testing.T) {
	for _, name := range []string{"gob", "bson", "proto"} {
		e, err := New(name)
		require.NoError(t, err)
		b, err := e.Encode(message.NewAck(1))
		require.NoError(t, err)
		_, err = e.Decode(b, len(b), message.DATA)
		assert.ErrorIs(t, err, ErrUnexpectedType, name)
	}
}

func TestStructuredEncodersRejectGarbage(t *testing.T) {
	garbage := []byte{0xff, 0xff, 0xff, 0xff, 0xff}
	for _, name := range []string{"gob", "bson", "proto"} {
		e, err := New(name)
		require.NoError(t, err)
		_, err = e.Decode(garbage, len(garbage), message.DATA)
		assert.ErrorIs(t, err, ErrMalformed, name)
	}
}

func TestNewUnknown(t *testing.T) {
	_, err := New("xml")
	assert.ErrorIs(t, err, ErrUnknown)

	e, err := New("")
	require.NoError(t, err)
	assert.IsType(t, TextEncoder{}, e)
}
