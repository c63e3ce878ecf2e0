package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/soumyaonikeri/The-Classic-File-Transfer-Real-Time-File-Transfer-and-Verification/logging"
	"github.com/soumyaonikeri/The-Classic-File-Transfer-Real-Time-File-Transfer-and-Verification/shared"
	"github.com/soumyaonikeri/The-Classic-File-Transfer-Real-Time-File-Transfer-and-Verification/shared/transfer"
	"github.com/soumyaonikeri/The-Classic-File-Transfer-Real-Time-File-Transfer-and-Verification/transport"
)

type Server struct {
	config           transfer.Config
	log              *logrus.Entry
	TransfersChannel chan chan transfer.Progress
}

type ServerTransfer struct {
	c          transfer.Config
	progressCh chan transfer.Progress
	fn         string
	ld         string
	filesize   int64

	session *shared.Session
	log     *logrus.Entry
}

func (st *ServerTransfer) Config() transfer.Config {
	return st.c
}

func (st *ServerTransfer) UpdateProgress(progress transfer.Progress) {
	select {
	case st.progressCh <- progress:
	default:
		//no progress listener
	}
}

func (st *ServerTransfer) Filename() string {
	return st.fn
}

func (st *ServerTransfer) LocalDirectory() string {
	return st.ld
}

func (st *ServerTransfer) FullPath() string {
	return filepath.Join(st.LocalDirectory(), st.Filename())
}

func newServerTransfer(session *shared.Session, config transfer.Config, log *logrus.Entry, progressCh chan transfer.Progress) *ServerTransfer {
	return &ServerTransfer{c: config, ld: config.UploadDirectory, session: session, log: log, progressCh: progressCh}
}

func NewServer(config transfer.Config, log logrus.FieldLogger) *Server {
	tc := make(chan chan transfer.Progress)
	return &Server{config: config, log: logging.Component(log, "server"), TransfersChannel: tc}
}

// ListenAndServe listens on the configured address and serves until ctx is
// done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	l, err := transport.Listen(s.config.Transport, s.config.Address)
	if err != nil {
		return fmt.Errorf("error listening: %w", err)
	}
	defer l.Close()
	return s.Serve(ctx, l)
}

// Serve handles one client at a time, each to completion before accepting
// the next. It returns nil once ctx is done.
func (s *Server) Serve(ctx context.Context, l transport.Listener) error {
	s.log.WithFields(logrus.Fields{"address": l.Addr().String(), "transport": s.config.Transport}).Info("Server is listening")
	for {
		conn, err := l.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				s.log.Info("Server stopped")
				return nil
			}
			return fmt.Errorf("error accepting: %w", err)
		}
		ch := make(chan transfer.Progress, 16)
		//non blocking send, in case nobody tracks progress
		select {
		case s.TransfersChannel <- ch:
		default:
		}
		s.handleRequest(conn, ch)
	}
}

func (s *Server) handleRequest(conn transport.Conn, ch chan transfer.Progress) {
	defer conn.Close()
	defer close(ch)

	log := s.log.WithFields(logrus.Fields{"session": uuid.NewString(), "remote": conn.RemoteAddr().String()})
	log.Info("Connection established")
	session, err := shared.NewSessionFromConfig(conn, s.config)
	if err != nil {
		log.WithError(err).Error("Error setting up session")
		return
	}
	st := newServerTransfer(session, s.config, log, ch)
	if err := serveTransfer(st); err != nil {
		log.WithError(err).Error("Error handling client")
		st.UpdateProgress(transfer.Progress{Type: transfer.ERROR, Message: err.Error()})
		return
	}
	drain(st)
	log.Info("Closing connection")
}

// drain waits for the client to hang up so that unread stale
// acknowledgments do not turn our close into a reset that could swallow the
// end marker.
func drain(st *ServerTransfer) {
	st.session.SetReadDeadline(time.Now().Add(st.c.AckTimeout))
	_, err := io.Copy(io.Discard, st.session.Reader())
	if err != nil && !isTimeout(err) && !errors.Is(err, io.EOF) {
		st.log.WithError(err).Debug("Error draining connection")
	}
}
