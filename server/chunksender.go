package server

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/soumyaonikeri/The-Classic-File-Transfer-Real-Time-File-Transfer-and-Verification/encoder"
	"github.com/soumyaonikeri/The-Classic-File-Transfer-Real-Time-File-Transfer-and-Verification/message"
	"github.com/soumyaonikeri/The-Classic-File-Transfer-Real-Time-File-Transfer-and-Verification/shared/transfer"
)

var (
	ErrRetriesExhausted = errors.New("chunk not acknowledged")
	ErrPeerClosed       = errors.New("peer closed the connection")
)

type FrameResult struct {
	Seq      int64
	Size     int
	Attempts int
	Acked    bool
}

type SendReport struct {
	Frames []FrameResult
	Bytes  int64
}

func (r *SendReport) Unacknowledged() []int64 {
	var seqs []int64
	for _, f := range r.Frames {
		if !f.Acked {
			seqs = append(seqs, f.Seq)
		}
	}
	return seqs
}

// sendChunks cuts r into ChunkSize blocks and sends them as frames numbered
// from 0, one at a time. Each frame waits for its acknowledgment; without
// one it is resent up to MaxRetries times. The end marker follows the last
// frame.
func sendChunks(st *ServerTransfer, r io.Reader) (*SendReport, error) {
	report := &SendReport{}
	buf := make([]byte, st.c.ChunkSize)
	for seq := int64(0); ; seq++ {
		n, err := io.ReadFull(r, buf)
		if err == io.EOF {
			break
		}
		if err != nil && err != io.ErrUnexpectedEOF {
			return report, fmt.Errorf("error reading file: %w", err)
		}
		last := err == io.ErrUnexpectedEOF

		res, err := sendFrame(st, seq, buf[:n])
		report.Frames = append(report.Frames, res)
		report.Bytes += int64(n)
		if err != nil {
			return report, err
		}
		if !res.Acked {
			if st.c.StrictAck {
				return report, fmt.Errorf("%w: chunk %d after %d attempts", ErrRetriesExhausted, seq, res.Attempts)
			}
			st.log.WithField("seq", seq).Warn("Chunk never acknowledged, moving on")
		}
		if st.filesize > 0 {
			st.UpdateProgress(transfer.Progress{Type: transfer.RETURNING, Message: fmt.Sprintf("Sent chunk %d", seq), Percentage: float64(report.Bytes) / float64(st.filesize) * 100})
		}
		if last {
			break
		}
	}

	if _, err := st.session.SendPacket(message.NewEnd()); err != nil {
		return report, fmt.Errorf("error sending end marker: %w", err)
	}
	return report, nil
}

func sendFrame(st *ServerTransfer, seq int64, payload []byte) (FrameResult, error) {
	res := FrameResult{Seq: seq, Size: len(payload)}
	//encoded once so that a resend is byte for byte identical
	data, err := st.session.Encode(message.NewFrame(seq, payload))
	if err != nil {
		return res, err
	}
	for attempt := 0; attempt <= st.c.MaxRetries; attempt++ {
		if attempt > 0 {
			st.log.WithFields(logrus.Fields{"seq": seq, "attempt": attempt}).Warn("ACK not received, resending chunk")
		}
		if err := st.session.WriteMessage(data); err != nil {
			return res, fmt.Errorf("error sending chunk %d: %w", seq, err)
		}
		res.Attempts++
		acked, err := awaitAck(st, seq)
		if err != nil {
			return res, err
		}
		if acked {
			res.Acked = true
			st.log.WithField("seq", seq).Debug("Sent chunk back to client")
			return res, nil
		}
	}
	return res, nil
}

// awaitAck waits up to AckTimeout for the acknowledgment of seq. It reports
// false on a timeout, a NAK, an unreadable token or an acknowledgment for a
// later frame. Acknowledgments of earlier frames are stale duplicates left
// over from resends and are skipped.
func awaitAck(st *ServerTransfer, seq int64) (bool, error) {
	st.session.SetReadDeadline(time.Now().Add(st.c.AckTimeout))
	defer st.session.SetReadDeadline(time.Time{})
	for {
		data, err := st.session.ReadMessage(st.c.AckReadSize())
		if err != nil {
			if isTimeout(err) {
				st.log.WithField("seq", seq).Warn("Timed out waiting for ACK")
				return false, nil
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return false, fmt.Errorf("%w while waiting for ACK%d", ErrPeerClosed, seq)
			}
			return false, fmt.Errorf("error reading ACK%d: %w", seq, err)
		}
		pkt, err := st.session.Decode(data, message.ACK)
		if err != nil {
			if errors.Is(err, encoder.ErrMalformed) || errors.Is(err, encoder.ErrUnexpectedType) {
				st.log.WithFields(logrus.Fields{"seq": seq, "token": fmt.Sprintf("%q", data)}).Warn("Unexpected acknowledgment")
				return false, nil
			}
			return false, err
		}
		switch {
		case pkt.Type == message.NAK:
			st.log.WithField("seq", seq).Warn("Client rejected chunk")
			return false, nil
		case pkt.Seq == seq:
			return true, nil
		case pkt.Seq < seq:
			st.log.WithFields(logrus.Fields{"seq": seq, "stale": pkt.Seq}).Debug("Skipping stale ACK")
		default:
			st.log.WithFields(logrus.Fields{"seq": seq, "got": pkt.Seq}).Warn("ACK for the wrong chunk")
			return false, nil
		}
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
