// If you are AI: This file implements the socket side of the receiver: bounded
// waits on the control connection and the UDP datagram reader.

package mms

import (
	"errors"
	"io"
	"net"
	"os"
	"time"

	"go.uber.org/zap"
)

// fill reads more bytes from either socket, waiting at most the poll timeout.
func (r *Receiver) fill() error {
	deadline := time.Now().Add(r.pollTimeout)
	for {
		if r.drainUDP() {
			return nil
		}

		wait := deadline
		if r.udp != nil {
			if step := time.Now().Add(udpSlice); step.Before(wait) {
				wait = step
			}
		}
		if err := r.tcp.SetReadDeadline(wait); err != nil {
			return Fatal("receive", err)
		}
		n, err := r.tcp.Read(r.scratch)
		if n > 0 {
			r.tcpBuf = append(r.tcpBuf, r.scratch[:n]...)
			return nil
		}
		if err == nil {
			continue
		}
		if isTimeout(err) {
			if time.Now().Before(deadline) {
				continue
			}
			return ErrPollTimeout
		}
		if errors.Is(err, io.EOF) {
			return Fatal("receive", ErrServerClosed)
		}
		return Fatal("receive", err)
	}
}

// drainUDP moves queued datagrams into the UDP buffer without blocking.
func (r *Receiver) drainUDP() bool {
	if r.udpIn == nil {
		return false
	}
	got := false
	for {
		select {
		case p := <-r.udpIn:
			r.udpBuf = append(r.udpBuf, p...)
			got = true
		default:
			return got
		}
	}
}

// readUDP forwards datagrams until the socket is closed.
func (r *Receiver) readUDP() {
	buf := make([]byte, 64*1024)
	for {
		n, _, err := r.udp.ReadFrom(buf)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				r.log.Debug("udp read stopped", zap.Error(err))
			}
			return
		}
		p := make([]byte, n)
		copy(p, buf[:n])
		select {
		case r.udpIn <- p:
		case <-r.done:
			return
		}
	}
}

// compact drops the first n bytes of b, reusing its storage.
func compact(b []byte, n int) []byte {
	if n <= 0 {
		return b
	}
	if n >= len(b) {
		return b[:0]
	}
	return b[:copy(b, b[n:])]
}

// isTimeout reports whether err is a read deadline expiry.
func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
