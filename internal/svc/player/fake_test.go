// If you are AI: This file contains a scripted MMS server over net.Pipe used by the player tests.

package player

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mmsgo/internal/core/protocol/asf"
	"mmsgo/internal/core/protocol/mms"
	"mmsgo/internal/core/protocol/wire"
)

const (
	testPacketLength = 3000
	testHeaderSize   = 500
	testURL          = "mms://media.example/live/show.asf"
)

var paddingGUID = wire.MustParseGUID("1806D474-CADF-4509-A4BA-9AABCB96AAE8")

// fakeServer answers client commands from a script. Frames are queued to a
// writer goroutine so server writes never block the client's own writes.
type fakeServer struct {
	t    *testing.T
	conn net.Conn
	out  chan []byte
	done chan struct{}

	mu       sync.Mutex
	seq      uint32
	commands []mms.Command

	// script
	header     []byte
	flags      uint32
	count      uint32
	media      [][]byte
	endOfMedia bool
	stopped    bool
	handle     func(f *fakeServer, cmd mms.Command) bool
}

// newFakeServer starts a server and returns the dial func handing out its
// client end once.
func newFakeServer(t *testing.T) (*fakeServer, mms.DialFunc) {
	t.Helper()
	server, client := net.Pipe()
	f := &fakeServer{
		t:      t,
		conn:   server,
		out:    make(chan []byte, 256),
		done:   make(chan struct{}),
		header: testHeader(t),
		count:  4,
	}
	for i := 0; i < int(f.count); i++ {
		f.media = append(f.media, bytes.Repeat([]byte{byte(i + 1)}, 1000))
	}
	go f.readLoop()
	go f.writeLoop()
	t.Cleanup(func() {
		close(f.done)
		server.Close()
		client.Close()
	})

	var dialed atomic.Bool
	dial := func(ctx context.Context, network, address string) (net.Conn, error) {
		if dialed.Swap(true) {
			return nil, errors.New("no more connections")
		}
		return client, nil
	}
	return f, dial
}

func (f *fakeServer) readLoop() {
	for {
		head := make([]byte, 16)
		if _, err := io.ReadFull(f.conn, head); err != nil {
			return
		}
		rest := make([]byte, binary.LittleEndian.Uint32(head[8:12]))
		if _, err := io.ReadFull(f.conn, rest); err != nil {
			return
		}
		cmd, _, err := mms.ParseCommand(append(head, rest...))
		if err != nil {
			return
		}
		f.mu.Lock()
		f.commands = append(f.commands, cmd)
		f.mu.Unlock()

		if f.handle != nil && f.handle(f, cmd) {
			continue
		}
		f.standard(cmd)
	}
}

func (f *fakeServer) writeLoop() {
	for {
		select {
		case <-f.done:
			return
		case frame := <-f.out:
			if _, err := f.conn.Write(frame); err != nil {
				return
			}
		}
	}
}

// standard is the default script for a well-behaved server.
func (f *fakeServer) standard(cmd mms.Command) {
	switch cmd.ID {
	case mms.CmdConnect:
		f.reply(mms.ReplyConnect, connectReply("9.1.1.3862"))
	case mms.CmdProtocolSelect:
		f.reply(mms.ReplyProtocolOK, nil)
	case mms.CmdMediaPath:
		f.reply(mms.ReplyMediaPath, describeReply(f.flags, f.count, uint32(len(f.header))))
	case mms.CmdHeaderRequest:
		half := len(f.header) / 2
		f.packet(mms.HeaderPacketID, 0, f.header[:half])
		f.packet(mms.HeaderPacketID, 1, f.header[half:])
	case mms.CmdStreamSelect:
		f.reply(mms.ReplyStreamSelection, nil)
	case mms.CmdStop:
		f.stopped = true
	case mms.CmdPlay:
		if f.stopped {
			f.reply(mms.ReplyEndOfStream, nil)
			f.stopped = false
		}
		f.reply(mms.ReplyPlay, nil)
		first := binary.LittleEndian.Uint32(cmd.Payload[12:])
		if first == mms.PlayFromCurrent {
			first = 0
		}
		for i := int(first); i < len(f.media); i++ {
			f.packet(mms.MediaPacketID, uint32(i-int(first)), f.media[i])
		}
		if f.endOfMedia {
			f.reply(mms.ReplyEndOfStream, nil)
		}
	}
}

func (f *fakeServer) reply(id uint16, payload []byte) {
	f.mu.Lock()
	seq := f.seq
	f.seq++
	f.mu.Unlock()
	f.out <- mms.EncodeCommand(seq, id, 0, 0, payload)
}

func (f *fakeServer) packet(id uint8, seq uint32, payload []byte) {
	f.out <- mms.EncodePacket(seq, id, 0, payload)
}

// received returns the commands seen so far.
func (f *fakeServer) received() []mms.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]mms.Command(nil), f.commands...)
}

// waitFor polls until a command with id arrives.
func (f *fakeServer) waitFor(id uint16, timeout time.Duration) (mms.Command, bool) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		for _, c := range f.received() {
			if c.ID == id {
				return c, true
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	return mms.Command{}, false
}

func connectReply(version string) []byte {
	w := wire.NewWriter(0)
	w.WriteMemory(make([]byte, 32))
	w.Write32(uint32(len(version) + 1))
	w.Write32(0)
	w.Write32(0)
	w.Write32(0)
	_ = w.WriteUTF16(version)
	return w.Bytes()
}

func describeReply(flags, count, headerSize uint32) []byte {
	p := make([]byte, 64)
	le := binary.LittleEndian
	le.PutUint32(p[0:], 1)
	le.PutUint32(p[12:], flags)
	le.PutUint32(p[24:], 60)
	le.PutUint32(p[44:], testPacketLength)
	le.PutUint32(p[48:], count)
	le.PutUint32(p[56:], 256000)
	le.PutUint32(p[60:], headerSize)
	return p
}

// testHeader builds a testHeaderSize-byte ASF header with one audio and one video stream.
func testHeader(t *testing.T) []byte {
	t.Helper()
	object := func(g wire.GUID, body []byte) []byte {
		w := wire.NewWriter(0)
		w.WriteGUID(g)
		w.Write64(uint64(24 + len(body)))
		w.WriteMemory(body)
		return w.Bytes()
	}
	stream := func(kind wire.GUID, id uint8) []byte {
		w := wire.NewWriter(0)
		w.WriteGUID(kind)
		w.WriteMemory(make([]byte, 16))
		w.Write64(0)
		w.Write32(0)
		w.Write32(0)
		w.Write8(id)
		w.Write8(0)
		w.Write32(0)
		return object(asf.GUIDStreamProperties, w.Bytes())
	}
	br := wire.NewWriter(0)
	br.Write16(2)
	br.Write16(1)
	br.Write32(64000)
	br.Write16(2)
	br.Write32(192000)

	objects := [][]byte{
		stream(asf.GUIDAudioMedia, 1),
		stream(asf.GUIDVideoMedia, 2),
		object(asf.GUIDStreamBitrateProperties, br.Bytes()),
	}
	used := 30
	for _, o := range objects {
		used += len(o)
	}
	objects = append(objects, object(paddingGUID, make([]byte, testHeaderSize-used-24)))

	w := wire.NewWriter(testHeaderSize)
	w.WriteGUID(asf.GUIDHeader)
	w.Write64(testHeaderSize)
	w.Write32(uint32(len(objects)))
	w.Write8(1)
	w.Write8(2)
	for _, o := range objects {
		w.WriteMemory(o)
	}
	if len(w.Bytes()) != testHeaderSize {
		t.Fatalf("test header is %d bytes", len(w.Bytes()))
	}
	return w.Bytes()
}

func testOptions(dial mms.DialFunc) Options {
	return Options{
		Protocol:    mms.ProtocolTCP,
		PollTimeout: 200 * time.Millisecond,
		RetryDelay:  time.Millisecond,
		Dial:        dial,
	}
}
