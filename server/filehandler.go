package server

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/soumyaonikeri/The-Classic-File-Transfer-Real-Time-File-Transfer-and-Verification/checksum"
	"github.com/soumyaonikeri/The-Classic-File-Transfer-Real-Time-File-Transfer-and-Verification/message"
	"github.com/soumyaonikeri/The-Classic-File-Transfer-Real-Time-File-Transfer-and-Verification/shared/transfer"
)

var ErrBadMetadata = errors.New("bad metadata")

// serveTransfer ingests the client's file and sends it back in frames.
func serveTransfer(st *ServerTransfer) error {
	if err := readMetadata(st); err != nil {
		return err
	}
	st.UpdateProgress(transfer.Progress{Type: transfer.UPLOADING, Message: "Receiving " + st.Filename()})

	if _, err := receiveFile(st); err != nil {
		return err
	}
	if digest, err := checksum.File(st.FullPath(), st.c.Digest, st.c.ChunkSize); err != nil {
		st.log.WithError(err).Warn("Error computing checksum of received file")
	} else {
		st.log.WithField("digest", digest).Info("Received file checksum")
	}

	f, err := os.Open(st.FullPath())
	if err != nil {
		return err
	}
	defer f.Close()

	st.UpdateProgress(transfer.Progress{Type: transfer.RETURNING, Message: "Sending chunks"})
	report, err := sendChunks(st, f)
	if err != nil {
		return err
	}
	fields := logrus.Fields{"frames": len(report.Frames), "bytes": report.Bytes}
	if failed := report.Unacknowledged(); len(failed) > 0 {
		fields["unacknowledged"] = failed
		st.log.WithFields(fields).Warn("File sent back, some chunks were never acknowledged")
	} else {
		st.log.WithFields(fields).Info("File transfer complete, sent all chunks back to client")
	}
	st.UpdateProgress(transfer.Progress{Type: transfer.DONE, Message: "Sent all chunks", Percentage: 100})
	return nil
}

// readMetadata parses the "name|size" header. Nothing is written to disk
// when it fails.
func readMetadata(st *ServerTransfer) error {
	st.session.SetReadDeadline(time.Now().Add(st.c.IdleTimeout))
	data, err := st.session.ReadMessage(st.c.MetadataReadSize())
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: no metadata received", ErrBadMetadata)
		}
		return fmt.Errorf("error reading metadata: %w", err)
	}
	pkt, err := st.session.Decode(data, message.METADATA)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadMetadata, err)
	}
	name, err := sanitizeName(pkt.Name)
	if err != nil {
		return err
	}
	if pkt.Size > st.c.MaxFileSize {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrBadMetadata, pkt.Size, st.c.MaxFileSize)
	}
	st.fn = name
	st.filesize = pkt.Size
	st.log = st.log.WithField("file", name)
	st.log.WithField("size", pkt.Size).Info("Received file metadata")
	return nil
}

// sanitizeName keeps only the last path element so a client cannot write
// outside the upload directory.
func sanitizeName(name string) (string, error) {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	switch base {
	case "", ".", "..", "/":
		return "", fmt.Errorf("%w: invalid file name %q", ErrBadMetadata, name)
	}
	return base, nil
}

// receiveFile stores exactly filesize bytes. They land in a temporary file
// that replaces FullPath only once the copy ends, so the target, which may
// be the very file the client is streaming from, is never truncated early.
// If the client hangs up early the truncated file is kept; the final digest
// comparison exposes it.
func receiveFile(st *ServerTransfer) (int64, error) {
	if err := os.MkdirAll(st.LocalDirectory(), 0755); err != nil {
		return 0, err
	}
	fo, err := os.CreateTemp(st.LocalDirectory(), "."+st.Filename()+".part-*")
	if err != nil {
		return 0, fmt.Errorf("error creating file: %w", err)
	}
	tmp := fo.Name()

	r := &idleReader{st: st}
	n, err := io.CopyN(fo, r, st.filesize)
	truncated := errors.Is(err, io.EOF)
	if err != nil && !truncated {
		fo.Close()
		os.Remove(tmp)
		return n, fmt.Errorf("error receiving file after %d bytes: %w", n, err)
	}
	if err := fo.Close(); err != nil {
		os.Remove(tmp)
		return n, fmt.Errorf("error writing file: %w", err)
	}
	//CreateTemp leaves the file private to the server
	if err := os.Chmod(tmp, 0644); err != nil {
		os.Remove(tmp)
		return n, err
	}
	if err := os.Rename(tmp, st.FullPath()); err != nil {
		os.Remove(tmp)
		return n, fmt.Errorf("error storing file: %w", err)
	}
	if truncated {
		st.log.WithFields(logrus.Fields{"received": n, "expected": st.filesize}).Warn("Connection closed early, keeping truncated file")
		return n, nil
	}
	st.log.WithField("bytes", n).Info("Received file successfully")
	return n, nil
}

// idleReader pushes the read deadline forward on every read, so only a
// stalled client times out.
type idleReader struct {
	st *ServerTransfer
}

func (r *idleReader) Read(p []byte) (int, error) {
	r.st.session.SetReadDeadline(time.Now().Add(r.st.c.IdleTimeout))
	return r.st.session.Reader().Read(p)
}
