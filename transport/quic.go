package transport

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"math/big"
	"net"
	"time"

	"github.com/quic-go/quic-go"
)

const (
	alpn        = "classic-ft"
	closeLinger = 5 * time.Second
)

var quicConfig = &quic.Config{
	MaxIdleTimeout:  30 * time.Second,
	KeepAlivePeriod: 10 * time.Second,
}

type quicListener struct {
	l *quic.Listener
}

// ListenQUIC serves one bidirectional stream per QUIC connection. The
// certificate is self signed and regenerated on every start; the channel is
// encrypted but the server is not authenticated.
func ListenQUIC(address string) (Listener, error) {
	tlsConf, err := generateTLSConfig()
	if err != nil {
		return nil, err
	}
	l, err := quic.ListenAddr(address, tlsConf, quicConfig)
	if err != nil {
		return nil, err
	}
	return &quicListener{l: l}, nil
}

func (q *quicListener) Accept(ctx context.Context) (Conn, error) {
	conn, err := q.l.Accept(ctx)
	if err != nil {
		return nil, err
	}
	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		conn.CloseWithError(1, "no stream opened")
		return nil, err
	}
	return &quicConn{Stream: stream, conn: conn, linger: true}, nil
}

func (q *quicListener) Addr() net.Addr {
	return q.l.Addr()
}

func (q *quicListener) Close() error {
	return q.l.Close()
}

func DialQUIC(ctx context.Context, address string) (Conn, error) {
	tlsConf := &tls.Config{
		InsecureSkipVerify: true,
		NextProtos:         []string{alpn},
	}
	conn, err := quic.DialAddr(ctx, address, tlsConf, quicConfig)
	if err != nil {
		return nil, err
	}
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		conn.CloseWithError(1, "cannot open stream")
		return nil, err
	}
	return &quicConn{Stream: stream, conn: conn}, nil
}

type quicConn struct {
	quic.Stream
	conn   quic.Connection
	linger bool
}

func (q *quicConn) RemoteAddr() net.Addr {
	return q.conn.RemoteAddr()
}

// Close finishes the stream. Closing the connection right away would drop
// data still in flight, so the accepting side waits for the peer to hang up
// first.
func (q *quicConn) Close() error {
	err := q.Stream.Close()
	if q.linger {
		select {
		case <-q.conn.Context().Done():
		case <-time.After(closeLinger):
		}
	}
	q.conn.CloseWithError(0, "")
	return err
}

func generateTLSConfig() (*tls.Config, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		DNSNames:     []string{"localhost"},
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{{Certificate: [][]byte{der}, PrivateKey: key}},
		NextProtos:   []string{alpn},
	}, nil
}
