package client

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/soumyaonikeri/The-Classic-File-Transfer-Real-Time-File-Transfer-and-Verification/message"
)

// sendFile writes the metadata header and then the file's bytes, unframed.
func sendFile(ct *ClientTransfer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := ct.session.SendPacket(message.NewMetadata(ct.Filename(), ct.filesize)); err != nil {
		return fmt.Errorf("error sending metadata: %w", err)
	}
	ct.log.WithField("size", ct.filesize).Info("File metadata sent")

	n, err := io.Copy(ct.session.Writer(), f)
	if err != nil {
		return fmt.Errorf("error sending file after %d bytes: %w", n, err)
	}
	ct.log.WithField("bytes", n).Info("File data sent")
	return nil
}

// writeOutput drains the reassembly buffer into the output file.
func writeOutput(ct *ClientTransfer) (int64, error) {
	if err := os.MkdirAll(ct.LocalDirectory(), 0755); err != nil {
		return 0, err
	}
	fo, err := os.Create(ct.FullPath())
	if err != nil {
		return 0, fmt.Errorf("error creating output file: %w", err)
	}
	n, err := ct.buffer.WriteTo(fo)
	if cerr := fo.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("error writing %s: %w", filepath.Base(ct.FullPath()), err)
	}
	if missing := ct.buffer.Missing(); len(missing) > 0 {
		ct.log.WithFields(logrus.Fields{"missing": missing}).Warn("Output has gaps")
	}
	return n, nil
}
