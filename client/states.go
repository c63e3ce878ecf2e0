package client

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/soumyaonikeri/The-Classic-File-Transfer-Real-Time-File-Transfer-and-Verification/message"
	"github.com/soumyaonikeri/The-Classic-File-Transfer-Real-Time-File-Transfer-and-Verification/shared/transfer"
	"github.com/soumyaonikeri/The-Classic-File-Transfer-Real-Time-File-Transfer-and-Verification/statemachine"
)

const snippetLength = 50

// receive reads frames until the end marker or until the server hangs up.
// Either way the collected frames stay in the reassembly buffer.
func (ct *ClientTransfer) receive() error {
	sm := statemachine.NewStateMachine(receivingState)
	for !sm.Done() {
		ct.session.SetReadDeadline(time.Now().Add(ct.config.IdleTimeout))
		data, err := ct.session.ReadMessage(ct.config.FrameReadSize())
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				ct.log.Warn("Connection closed by the server")
				return nil
			}
			return fmt.Errorf("error reading chunk: %w", err)
		}
		pkt, err := ct.session.Decode(data, message.DATA)
		if err != nil {
			ct.discard(data, err)
			continue
		}
		sm.Transition(pkt, ct)
	}
	return nil
}

func (ct *ClientTransfer) discard(data []byte, reason error) {
	ct.malformed++
	snippet := data
	if len(snippet) > snippetLength {
		snippet = snippet[:snippetLength]
	}
	ct.log.WithFields(logrus.Fields{"snippet": fmt.Sprintf("%q", snippet), "error": reason}).Warn("Discarding unexpected data")
	if !ct.config.SendsNaks() {
		return
	}
	if _, err := ct.session.SendPacket(message.NewNak()); err != nil {
		ct.log.WithError(err).Warn("Error sending NAK")
	}
}

func receivingState(pkt *message.Packet, t transfer.Transfer) statemachine.StateFn {
	ct := t.(*ClientTransfer)
	switch pkt.Type {
	case message.END:
		ct.log.Info("End of transmission received")
		return nil
	case message.DATA:
		duplicate, err := ct.buffer.Store(pkt.Seq, pkt.Payload)
		if err != nil {
			ct.discard(pkt.Payload, err)
			return receivingState
		}
		if duplicate {
			ct.log.WithField("seq", pkt.Seq).Warn("Duplicate chunk, keeping the latest payload")
		} else {
			ct.log.WithField("seq", pkt.Seq).Debug("Received chunk")
		}
		if _, err := ct.session.SendPacket(message.NewAck(pkt.Seq)); err != nil {
			ct.log.WithError(err).WithField("seq", pkt.Seq).Warn("Error sending ACK, ending reception")
			return nil
		}
		ct.UpdateProgress(transfer.Progress{Type: transfer.RETURNING, Message: fmt.Sprintf("Received chunk %d", pkt.Seq), Percentage: ct.percentage()})
		return receivingState
	}
	ct.log.WithField("type", pkt.Type).Warn("Ignoring unexpected packet")
	return receivingState
}

func (ct *ClientTransfer) percentage() float64 {
	if ct.filesize == 0 {
		return 100
	}
	p := float64(int64(ct.buffer.Len())*int64(ct.config.ChunkSize)) / float64(ct.filesize) * 100
	if p > 100 {
		p = 100
	}
	return p
}
