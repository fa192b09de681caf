// Package transport wraps a connected byte stream (TCP or Unix-domain)
// behind a single contract: start an async reader, send best-effort,
// close idempotently. Grounded on the original server's TcpTransport:
// one reader goroutine, a running flag toggled with a compare-and-swap,
// and a close callback fired exactly once.
package transport

import (
	"errors"
	"io"
	"net"
	"sync/atomic"

	"go.uber.org/zap"
)

// ReceiveFunc is invoked from the single reader goroutine for every
// successful read.
type ReceiveFunc func(payload []byte)

// CloseFunc is invoked exactly once, after the reader loop exits because
// the peer closed the connection or a read/write error occurred.
type CloseFunc func()

// Transport is a connected byte stream with async receive and best-effort
// send. Implementations must guarantee on_bytes runs on a single reader
// goroutine, on_close fires exactly once, and close is idempotent.
type Transport interface {
	Start(onReceive ReceiveFunc, onClose CloseFunc)
	Send(payload []byte)
	Close()
}

const readBufferSize = 4096

// streamTransport implements Transport over any net.Conn; TCP and
// Unix-domain sockets share this code because their behaviour is
// identical above the socket type.
type streamTransport struct {
	conn    net.Conn
	log     *zap.Logger
	running atomic.Bool
	closed  atomic.Bool
	onClose CloseFunc
}

// NewTCP wraps an accepted TCP connection.
func NewTCP(conn net.Conn, log *zap.Logger) Transport {
	return &streamTransport{conn: conn, log: log}
}

// NewUnix wraps an accepted Unix-domain stream connection.
func NewUnix(conn net.Conn, log *zap.Logger) Transport {
	return &streamTransport{conn: conn, log: log}
}

func (t *streamTransport) Start(onReceive ReceiveFunc, onClose CloseFunc) {
	if !t.running.CompareAndSwap(false, true) {
		return
	}
	t.onClose = onClose

	go func() {
		buf := make([]byte, readBufferSize)

		for t.running.Load() {
			n, err := t.conn.Read(buf)
			if n > 0 {
				payload := make([]byte, n)
				copy(payload, buf[:n])
				onReceive(payload)
			}
			if err != nil {
				if !errors.Is(err, io.EOF) && t.log != nil {
					t.log.Debug("read error", zap.Error(err))
				}
				t.running.Store(false)
				break
			}
		}

		if t.onClose != nil {
			t.onClose()
		}
	}()
}

func (t *streamTransport) Send(payload []byte) {
	if !t.running.Load() {
		return
	}
	if _, err := t.conn.Write(payload); err != nil {
		if t.log != nil {
			t.log.Debug("write error", zap.Error(err))
		}
		t.running.Store(false)
	}
}

func (t *streamTransport) Close() {
	if !t.closed.CompareAndSwap(false, true) {
		return
	}
	t.running.Store(false)
	_ = t.conn.Close()
}
