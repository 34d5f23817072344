// If you are AI: This file provides a scripted MMS server on a loopback TCP
// listener for end-to-end tests of the client, the relay and the HTTP services.

package itest

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"mmsgo/internal/core/protocol/asf"
	"mmsgo/internal/core/protocol/mms"
	"mmsgo/internal/core/protocol/wire"
)

const (
	// PacketLength is the fixed ASF data packet size announced by the server.
	PacketLength = 1500
	// HeaderSize is the size of the served ASF header.
	HeaderSize = 400
)

var paddingGUID = wire.MustParseGUID("1806D474-CADF-4509-A4BA-9AABCB96AAE8")

// MMSServer serves one live broadcast to any number of TCP clients.
// Media packet i is PacketLength/2 bytes of the value byte(i).
type MMSServer struct {
	ln       net.Listener
	header   []byte
	interval time.Duration

	mu    sync.Mutex
	conns map[net.Conn]struct{}
	plays int
	wg    sync.WaitGroup
}

// StartMMSServer listens on a loopback port and serves until Close.
func StartMMSServer(interval time.Duration) (*MMSServer, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	header, err := BuildHeader()
	if err != nil {
		ln.Close()
		return nil, err
	}
	s := &MMSServer{
		ln:       ln,
		header:   header,
		interval: interval,
		conns:    make(map[net.Conn]struct{}),
	}
	s.wg.Add(1)
	go s.accept()
	return s, nil
}

// URL returns an mms URL for the broadcast.
func (s *MMSServer) URL() string {
	return "mms://" + s.ln.Addr().String() + "/live/show"
}

// Header returns the ASF header the server sends.
func (s *MMSServer) Header() []byte {
	return s.header
}

// Plays returns how many play commands were received.
func (s *MMSServer) Plays() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plays
}

// Close stops the listener and drops every client.
func (s *MMSServer) Close() error {
	err := s.ln.Close()
	s.mu.Lock()
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	return err
}

func (s *MMSServer) accept() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()
		s.wg.Add(1)
		go s.serve(conn)
	}
}

// client is the per-connection state; writes are serialized by mu.
type client struct {
	conn    net.Conn
	mu      sync.Mutex
	seq     uint32
	stopped chan struct{}
}

func (c *client) write(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.conn.Write(frame)
	return err
}

func (c *client) reply(id uint16, payload []byte) error {
	c.mu.Lock()
	seq := c.seq
	c.seq++
	c.mu.Unlock()
	return c.write(mms.EncodeCommand(seq, id, 0, 0, payload))
}

func (s *MMSServer) serve(conn net.Conn) {
	defer s.wg.Done()
	c := &client{conn: conn, stopped: make(chan struct{})}
	defer func() {
		close(c.stopped)
		conn.Close()
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()

	streaming := false
	for {
		cmd, err := readCommand(conn)
		if err != nil {
			return
		}
		switch cmd.ID {
		case mms.CmdConnect:
			err = c.reply(mms.ReplyConnect, connectReply("9.1.1.3862"))
		case mms.CmdProtocolSelect:
			err = c.reply(mms.ReplyProtocolOK, nil)
		case mms.CmdMediaPath:
			err = c.reply(mms.ReplyMediaPath, describeReply(uint32(len(s.header))))
		case mms.CmdHeaderRequest:
			err = c.write(mms.EncodePacket(0, mms.HeaderPacketID, 0, s.header))
		case mms.CmdStreamSelect:
			err = c.reply(mms.ReplyStreamSelection, nil)
		case mms.CmdPlay:
			s.mu.Lock()
			s.plays++
			s.mu.Unlock()
			if err = c.reply(mms.ReplyPlay, nil); err == nil && !streaming {
				streaming = true
				go s.broadcast(c)
			}
		case mms.CmdClose:
			return
		}
		if err != nil {
			return
		}
	}
}

// broadcast sends one media packet per interval until the client leaves.
func (s *MMSServer) broadcast(c *client) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for seq := uint32(0); ; seq++ {
		select {
		case <-c.stopped:
			return
		case <-ticker.C:
		}
		payload := make([]byte, PacketLength/2)
		for i := range payload {
			payload[i] = byte(seq)
		}
		if err := c.write(mms.EncodePacket(seq, mms.MediaPacketID, 0, payload)); err != nil {
			return
		}
	}
}

func readCommand(r io.Reader) (mms.Command, error) {
	head := make([]byte, 16)
	if _, err := io.ReadFull(r, head); err != nil {
		return mms.Command{}, err
	}
	rest := make([]byte, binary.LittleEndian.Uint32(head[8:12]))
	if _, err := io.ReadFull(r, rest); err != nil {
		return mms.Command{}, err
	}
	cmd, _, err := mms.ParseCommand(append(head, rest...))
	return cmd, err
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

// describeReply announces a live broadcast (zero packet count).
func describeReply(headerSize uint32) []byte {
	p := make([]byte, 64)
	le := binary.LittleEndian
	le.PutUint32(p[0:], 1)
	le.PutUint32(p[12:], 0x02000000)
	le.PutUint32(p[44:], PacketLength)
	le.PutUint32(p[56:], 128000)
	le.PutUint32(p[60:], headerSize)
	return p
}

// BuildHeader builds a HeaderSize-byte ASF header with one audio stream.
func BuildHeader() ([]byte, error) {
	object := func(g wire.GUID, body []byte) []byte {
		w := wire.NewWriter(0)
		w.WriteGUID(g)
		w.Write64(uint64(24 + len(body)))
		w.WriteMemory(body)
		return w.Bytes()
	}
	sp := wire.NewWriter(0)
	sp.WriteGUID(asf.GUIDAudioMedia)
	sp.WriteMemory(make([]byte, 16))
	sp.Write64(0)
	sp.Write32(0)
	sp.Write32(0)
	sp.Write8(1)
	sp.Write8(0)
	sp.Write32(0)

	br := wire.NewWriter(0)
	br.Write16(1)
	br.Write16(1)
	br.Write32(64000)

	objects := [][]byte{
		object(asf.GUIDStreamProperties, sp.Bytes()),
		object(asf.GUIDStreamBitrateProperties, br.Bytes()),
	}
	used := 30
	for _, o := range objects {
		used += len(o)
	}
	objects = append(objects, object(paddingGUID, make([]byte, HeaderSize-used-24)))

	w := wire.NewWriter(HeaderSize)
	w.WriteGUID(asf.GUIDHeader)
	w.Write64(HeaderSize)
	w.Write32(uint32(len(objects)))
	w.Write8(1)
	w.Write8(2)
	for _, o := range objects {
		w.WriteMemory(o)
	}
	if len(w.Bytes()) != HeaderSize {
		return nil, errors.New("header size mismatch")
	}
	return w.Bytes(), nil
}
