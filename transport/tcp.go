package transport

import (
	"context"
	"net"
)

type tcpListener struct {
	l net.Listener
}

func ListenTCP(address string) (Listener, error) {
	l, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}
	return &tcpListener{l: l}, nil
}

// Accept unblocks with the context's error once ctx is done.
func (t *tcpListener) Accept(ctx context.Context) (Conn, error) {
	stop := context.AfterFunc(ctx, func() {
		t.l.Close()
	})
	defer stop()
	conn, err := t.l.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return conn, nil
}

func (t *tcpListener) Addr() net.Addr {
	return t.l.Addr()
}

func (t *tcpListener) Close() error {
	return t.l.Close()
}

func DialTCP(ctx context.Context, address string) (Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "tcp", address)
}
