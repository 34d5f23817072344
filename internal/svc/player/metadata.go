// If you are AI: This file exposes session metadata and the one-call Open helper.

package player

import (
	"context"
	"fmt"

	"mmsgo/internal/core/protocol/asf"
	"mmsgo/internal/core/protocol/mms"
)

// StreamInfo describes one stream of the ASF header.
type StreamInfo struct {
	ID       int    `json:"id"`
	Category string `json:"category"`
	Bitrate  int32  `json:"bitrate"`
	Selected bool   `json:"selected"`
}

// Metadata summarizes a described session.
type Metadata struct {
	URL          string       `json:"url"`
	Protocol     string       `json:"protocol"`
	State        string       `json:"state"`
	Server       ServerInfo   `json:"server"`
	Broadcast    bool         `json:"broadcast"`
	Seekable     bool         `json:"seekable"`
	HeaderSize   int          `json:"header_size"`
	PacketLength uint32       `json:"packet_length"`
	PacketCount  uint32       `json:"packet_count"`
	MaxBitrate   uint32       `json:"max_bitrate"`
	MediaLength  uint32       `json:"media_length"`
	Size         int64        `json:"size,omitempty"`
	Position     int64        `json:"position"`
	EOF          bool         `json:"eof"`
	LastReply    string       `json:"last_reply,omitempty"`
	Streams      []StreamInfo `json:"streams,omitempty"`
}

// Metadata returns what is known about the session so far.
func (s *Session) Metadata() Metadata {
	s.mu.Lock()
	defer s.mu.Unlock()

	md := Metadata{
		State:    s.State().String(),
		Server:   s.server,
		Position: s.position,
		EOF:      s.channel != nil && s.channel.EOF(),
	}
	if s.url != nil {
		md.URL = s.url.String()
	}
	if s.channel != nil {
		md.Protocol = s.proto.String()
		if last := s.channel.Last(); last.ID != 0 {
			md.LastReply = fmt.Sprintf("0x%02x", last.ID)
		}
	}
	if s.asf == nil {
		return md
	}

	d := s.desc
	md.Broadcast = d.broadcast
	md.Seekable = !d.broadcast
	md.HeaderSize = len(s.header)
	md.PacketLength = d.packetLength
	md.PacketCount = d.packetCount
	md.MaxBitrate = d.maxBitrate
	md.MediaLength = d.mediaLength
	if md.Seekable {
		md.Size = int64(len(s.header)) + int64(d.packetCount)*int64(d.packetLength)
	}
	for i := 1; i < asf.MaxStreams; i++ {
		st := s.asf.Streams[i]
		if st.Category == asf.CategoryUnknown {
			continue
		}
		md.Streams = append(md.Streams, StreamInfo{
			ID:       i,
			Category: st.Category.String(),
			Bitrate:  st.Bitrate,
			Selected: st.Selected,
		})
	}
	return md
}

// Header returns the raw ASF header, nil before Describe.
func (s *Session) Header() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.header
}

// Open connects, describes the media path from the URL and starts playback
// from the beginning. On failure the session is closed.
func Open(ctx context.Context, rawURL string, opts Options) (*Session, error) {
	s := NewSession(opts)
	if err := s.Connect(ctx, rawURL); err != nil {
		return nil, err
	}
	if err := s.Describe(ctx, ""); err != nil {
		s.Close()
		return nil, fmt.Errorf("describe: %w", err)
	}
	if err := s.Start(ctx, mms.PlayFromCurrent); err != nil {
		s.Close()
		return nil, fmt.Errorf("start: %w", err)
	}
	return s, nil
}
