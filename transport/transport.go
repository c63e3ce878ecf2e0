// Package transport opens the single byte stream a transfer runs over,
// either a TCP connection or one bidirectional QUIC stream.
package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"
)

// Conn is the subset of net.Conn the protocol relies on.
type Conn interface {
	io.ReadWriteCloser
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	RemoteAddr() net.Addr
}

type Listener interface {
	Accept(ctx context.Context) (Conn, error)
	Addr() net.Addr
	Close() error
}

func Listen(network, address string) (Listener, error) {
	switch network {
	case "", "tcp":
		return ListenTCP(address)
	case "quic":
		return ListenQUIC(address)
	}
	return nil, fmt.Errorf("unknown transport %q", network)
}

func Dial(ctx context.Context, network, address string) (Conn, error) {
	switch network {
	case "", "tcp":
		return DialTCP(ctx, address)
	case "quic":
		return DialQUIC(ctx, address)
	}
	return nil, fmt.Errorf("unknown transport %q", network)
}
