package client

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/soumyaonikeri/The-Classic-File-Transfer-Real-Time-File-Transfer-and-Verification/checksum"
	"github.com/soumyaonikeri/The-Classic-File-Transfer-Real-Time-File-Transfer-and-Verification/logging"
	"github.com/soumyaonikeri/The-Classic-File-Transfer-Real-Time-File-Transfer-and-Verification/shared"
	"github.com/soumyaonikeri/The-Classic-File-Transfer-Real-Time-File-Transfer-and-Verification/shared/transfer"
	"github.com/soumyaonikeri/The-Classic-File-Transfer-Real-Time-File-Transfer-and-Verification/transport"
)

var (
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrRawUpload is returned for raw framing: the metadata header and the
	// bulk bytes would reach the server in one read.
	ErrRawUpload = errors.New("raw framing cannot carry an upload")
)

type Client struct {
	config transfer.Config
	log    *logrus.Entry
}

type ClientTransfer struct {
	filename       string
	config         transfer.Config
	progressCh     chan<- transfer.Progress
	filesize       int64
	localDirectory string

	session   *shared.Session
	log       *logrus.Entry
	buffer    *Reassembly
	malformed int
}

func (ct *ClientTransfer) Config() transfer.Config {
	return ct.config
}

//non blocking, nobody has to listen
func (ct *ClientTransfer) UpdateProgress(progress transfer.Progress) {
	if ct.progressCh == nil {
		return
	}
	select {
	case ct.progressCh <- progress:
	default:
	}
}

func (ct *ClientTransfer) Filename() string {
	return ct.filename
}

func (ct *ClientTransfer) LocalDirectory() string {
	return ct.localDirectory
}

// FullPath is where the reassembled copy is written.
func (ct *ClientTransfer) FullPath() string {
	return filepath.Join(ct.LocalDirectory(), ct.config.OutputPrefix+ct.Filename())
}

func NewClientTransfer(filename string, filesize int64, session *shared.Session, config transfer.Config, log *logrus.Entry, progressCh chan<- transfer.Progress) *ClientTransfer {
	return &ClientTransfer{
		filename:       filename,
		filesize:       filesize,
		localDirectory: config.OutputDirectory,
		config:         config,
		progressCh:     progressCh,
		session:        session,
		log:            log,
		buffer:         NewReassembly(config.MaxFrames),
	}
}

// Result describes one finished exchange.
type Result struct {
	Source       string
	Output       string
	SourceDigest string
	OutputDigest string
	Match        bool
	Bytes        int64
	Frames       int
	Duplicates   int
	Malformed    int
	Missing      []int64
}

func NewClient(config transfer.Config, log logrus.FieldLogger) *Client {
	return &Client{config: config, log: logging.Component(log, "client")}
}

// Upload sends the file at path to the server, collects the copy the server
// returns and compares digests. A digest mismatch returns the result together
// with ErrChecksumMismatch. progress may be nil.
func (c *Client) Upload(ctx context.Context, path string, progress chan<- transfer.Progress) (*Result, error) {
	conn, err := transport.Dial(ctx, c.config.Transport, c.config.Address)
	if err != nil {
		return nil, fmt.Errorf("error establishing connection: %w", err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()

	res, err := c.Exchange(conn, path, progress)
	if ctx.Err() != nil {
		return res, ctx.Err()
	}
	return res, err
}

// Exchange runs the whole protocol over an established connection.
func (c *Client) Exchange(conn transport.Conn, path string, progress chan<- transfer.Progress) (*Result, error) {
	if c.config.Framing == "raw" {
		return nil, ErrRawUpload
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	session, err := shared.NewSessionFromConfig(conn, c.config)
	if err != nil {
		return nil, err
	}
	log := c.log.WithFields(logrus.Fields{
		"session": uuid.NewString(),
		"remote":  session.RemoteAddr(),
		"file":    filepath.Base(path),
	})
	ct := NewClientTransfer(filepath.Base(path), info.Size(), session, c.config, log, progress)
	if err := checkOutputPath(path, ct.FullPath()); err != nil {
		return nil, err
	}

	res := &Result{Source: path, Output: ct.FullPath()}
	res.SourceDigest, err = checksum.File(path, c.config.Digest, c.config.ChunkSize)
	if err != nil {
		return nil, fmt.Errorf("checksum of %s: %w", path, err)
	}

	ct.UpdateProgress(transfer.Progress{Type: transfer.UPLOADING, Message: "Uploading " + ct.Filename()})
	if err := sendFile(ct, path); err != nil {
		return nil, err
	}

	ct.UpdateProgress(transfer.Progress{Type: transfer.RETURNING, Message: "Receiving chunks"})
	recvErr := ct.receive()

	n, err := writeOutput(ct)
	if err != nil {
		return nil, err
	}
	res.Bytes = n
	res.Frames = ct.buffer.Len()
	res.Duplicates = ct.buffer.Duplicates()
	res.Malformed = ct.malformed
	res.Missing = ct.buffer.Missing()
	log.WithFields(logrus.Fields{"frames": res.Frames, "bytes": n}).Info("File reassembled")
	if recvErr != nil {
		ct.UpdateProgress(transfer.Progress{Type: transfer.ERROR, Message: recvErr.Error()})
		return res, recvErr
	}

	ct.UpdateProgress(transfer.Progress{Type: transfer.VERIFYING, Message: "Verifying checksum", Percentage: 100})
	res.OutputDigest, err = checksum.File(res.Output, c.config.Digest, c.config.ChunkSize)
	if err != nil {
		return res, fmt.Errorf("checksum of %s: %w", res.Output, err)
	}
	res.Match = res.OutputDigest == res.SourceDigest
	if !res.Match {
		log.WithFields(logrus.Fields{"expected": res.SourceDigest, "got": res.OutputDigest}).Error("File transfer failed, checksum mismatch")
		ct.UpdateProgress(transfer.Progress{Type: transfer.ERROR, Message: "Checksum mismatch"})
		return res, fmt.Errorf("%w for %s", ErrChecksumMismatch, path)
	}
	log.WithField("digest", res.SourceDigest).Info("File transfer successful, checksum verified")
	ct.UpdateProgress(transfer.Progress{Type: transfer.DONE, Message: "Checksum verified", Percentage: 100})
	return res, nil
}

// checkOutputPath refuses to let the reassembled copy replace its source.
func checkOutputPath(source, output string) error {
	src, err := filepath.Abs(source)
	if err != nil {
		return err
	}
	out, err := filepath.Abs(output)
	if err != nil {
		return err
	}
	if src == out {
		return fmt.Errorf("output %s would overwrite the source file", output)
	}
	return nil
}
