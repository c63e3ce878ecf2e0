package shared

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var ErrMessageTooLarge = errors.New("message exceeds read limit")

// Framer marks message boundaries on a byte stream.
type Framer interface {
	WriteMessage(w io.Writer, msg []byte) error
	// ReadMessage returns the next message, at most max bytes long. io.EOF
	// means the peer closed the stream between messages.
	ReadMessage(r io.Reader, max int) ([]byte, error)
	// Reader wraps the connection for use with ReadMessage and for the
	// unframed bulk bytes that follow the metadata header.
	Reader(r io.Reader) io.Reader
}

func NewFramer(name string) (Framer, error) {
	switch name {
	case "", "length":
		return LengthPrefixed{}, nil
	case "raw":
		return Raw{}, nil
	}
	return nil, fmt.Errorf("unknown framing %q", name)
}

// LengthPrefixed puts a 4 byte big endian length in front of every message.
type LengthPrefixed struct{}

func (LengthPrefixed) WriteMessage(w io.Writer, msg []byte) error {
	//one write per message so the header never travels alone
	b := make([]byte, 4+len(msg))
	binary.BigEndian.PutUint32(b, uint32(len(msg)))
	copy(b[4:], msg)
	_, err := w.Write(b)
	return err
}

// ReadMessage reads one message. On a reader from Reader it resumes a
// message that an earlier read left half done because a deadline fired.
func (LengthPrefixed) ReadMessage(r io.Reader, max int) ([]byte, error) {
	if lr, ok := r.(*lengthReader); ok {
		return lr.next(max)
	}
	lr := &lengthReader{r: r}
	return lr.next(max)
}

func (LengthPrefixed) Reader(r io.Reader) io.Reader {
	return &lengthReader{r: bufio.NewReader(r)}
}

// lengthReader keeps the progress of a partly read message, so a read
// deadline between header and body does not shift the message boundaries.
type lengthReader struct {
	r      io.Reader
	hdr    [4]byte
	hdrN   int
	body   []byte
	bodyN  int
	inBody bool
}

func (lr *lengthReader) next(max int) ([]byte, error) {
	if !lr.inBody {
		n, err := io.ReadFull(lr.r, lr.hdr[lr.hdrN:])
		lr.hdrN += n
		if err != nil {
			if err == io.EOF && lr.hdrN > 0 {
				err = io.ErrUnexpectedEOF
			}
			return nil, err
		}
		size := binary.BigEndian.Uint32(lr.hdr[:])
		lr.hdrN = 0
		if int64(size) > int64(max) {
			return nil, fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, size, max)
		}
		lr.body = make([]byte, size)
		lr.bodyN = 0
		lr.inBody = true
	}
	n, err := io.ReadFull(lr.r, lr.body[lr.bodyN:])
	lr.bodyN += n
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	msg := lr.body
	lr.body = nil
	lr.inBody = false
	return msg, nil
}

func (lr *lengthReader) Read(p []byte) (int, error) {
	return lr.r.Read(p)
}

// Raw treats whatever a single read returns as one message. Boundaries only
// hold while the peer writes one message at a time and waits for a reply,
// so it is only good for a server facing legacy clients and for the frame
// exchange. An uploading client writes the header and the file back to back,
// which is why the client refuses raw framing.
type Raw struct{}

func (Raw) WriteMessage(w io.Writer, msg []byte) error {
	_, err := w.Write(msg)
	return err
}

func (Raw) ReadMessage(r io.Reader, max int) ([]byte, error) {
	buf := make([]byte, max)
	n, err := r.Read(buf)
	if n > 0 {
		return buf[:n], nil
	}
	if err == nil {
		//an empty read means the peer is gone
		err = io.EOF
	}
	return nil, err
}

func (Raw) Reader(r io.Reader) io.Reader {
	return r
}
