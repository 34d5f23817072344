// If you are AI: This file implements connection setup: transport strategies, the
// connect command and protocol selection.

package player

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"mmsgo/internal/core/protocol/mms"
	"mmsgo/internal/core/protocol/wire"
)

// attemptResult is the outcome of one transport strategy.
type attemptResult struct {
	proto     mms.Protocol
	transport *mms.Transport
	channel   *mms.Channel
	recv      *mms.Receiver
	guid      wire.GUID
	server    ServerInfo
	err       error
}

// strategies returns the transport protocols to try, in order.
// UDP falls back to TCP; auto tries TCP first.
func strategies(p mms.Protocol) []mms.Protocol {
	switch p {
	case mms.ProtocolTCP:
		return []mms.Protocol{mms.ProtocolTCP}
	case mms.ProtocolUDP:
		return []mms.Protocol{mms.ProtocolUDP, mms.ProtocolTCP}
	default:
		return []mms.Protocol{mms.ProtocolTCP, mms.ProtocolUDP}
	}
}

// Connect opens the transport and negotiates the session with the server.
// Each strategy is tried in order until one completes protocol selection.
func (s *Session) Connect(ctx context.Context, rawURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() != StateDisconnected || s.closed {
		return ErrAlreadyConnected
	}
	u, err := mms.ParseURL(rawURL)
	if err != nil {
		return err
	}
	proto := s.opts.Protocol
	if proto == mms.ProtocolAuto {
		proto = u.Protocol
	}

	s.url = u
	s.log = s.log.With(zap.String("url", u.String()))
	s.setState(StateConnecting)

	var errs []error
	for _, p := range strategies(proto) {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res := s.attempt(ctx, u, p)
		if res.err == nil {
			s.adopt(res)
			s.startKeepAlive()
			s.log.Info("connected",
				zap.Stringer("protocol", p),
				zap.String("server_version", res.server.Version))
			return nil
		}
		s.log.Warn("transport attempt failed", zap.Stringer("protocol", p), zap.Error(res.err))
		errs = append(errs, fmt.Errorf("%s: %w", p, res.err))
	}

	s.setState(StateDisconnected)
	return fmt.Errorf("connect %s: %w", u.Address(), errors.Join(errs...))
}

// adopt installs a successful attempt as the session's connection.
func (s *Session) adopt(res attemptResult) {
	s.proto = res.proto
	s.transport = res.transport
	s.channel = res.channel
	s.recv = res.recv
	s.guid = res.guid
	s.server = res.server
}

// attempt runs one transport strategy through connect and protocol selection.
func (s *Session) attempt(ctx context.Context, u *mms.URL, p mms.Protocol) (res attemptResult) {
	res.proto = p
	t, err := mms.Dial(ctx, u, p, mms.DialOptions{
		Timeout: s.opts.ConnectTimeout,
		UDPPort: s.opts.UDPPort,
		Dial:    s.opts.Dial,
	})
	if err != nil {
		res.err = err
		return res
	}
	recv := mms.NewReceiver(t.TCP, t.UDP, mms.ReceiverOptions{
		PollTimeout: s.opts.PollTimeout,
		Logger:      s.log,
		Metrics:     s.opts.Metrics,
	})
	ch := mms.NewChannel(t.TCP, recv, mms.ChannelOptions{
		RetryDelay: s.opts.RetryDelay,
		Logger:     s.log,
		Metrics:    s.opts.Metrics,
	})
	// cancellation closes the sockets, which unblocks a pending read
	stop := context.AfterFunc(ctx, func() { t.Close() })
	defer func() {
		stop()
		if res.err != nil {
			recv.Close()
			t.Close()
		}
	}()

	res.guid = wire.NewSessionGUID()
	s.setState(StateNegotiating)

	res.server, res.err = sendConnect(ch, res.guid, u.Host)
	if res.err != nil {
		return res
	}
	if res.err = selectProtocol(ch, t, p); res.err != nil {
		return res
	}
	res.transport, res.channel, res.recv = t, ch, recv
	return res
}

// sendConnect sends the 0x01 connect command and parses the server strings.
func sendConnect(ch *mms.Channel, guid wire.GUID, host string) (ServerInfo, error) {
	w := wire.NewWriter(128)
	w.Write16(0x001c)
	w.Write16(0x0003)
	if err := w.WriteUTF16(fmt.Sprintf("%s; {%s}; Host: %s", mms.ClientVersion, guid, host)); err != nil {
		return ServerInfo{}, err
	}
	if err := ch.Send(mms.CmdConnect, 0, 0x0004000b, w.Bytes()); err != nil {
		return ServerInfo{}, err
	}
	cmd, err := ch.Read(mms.ReplyConnect, 0)
	if err != nil {
		return ServerInfo{}, err
	}
	return parseServerInfo(cmd.Payload), nil
}

// parseServerInfo reads the four counted UTF-16 strings of the connect reply.
// The strings are informational; malformed data yields empty fields.
func parseServerInfo(payload []byte) ServerInfo {
	var info ServerInfo
	r := wire.NewReader(payload)
	if r.Skip(32) != nil {
		return info
	}
	var counts [4]uint32
	for i := range counts {
		v, err := r.Read32()
		if err != nil {
			return info
		}
		counts[i] = v
	}
	fields := []*string{&info.Version, &info.ToolVersion, &info.UpdateURL, &info.EncryptionType}
	for i, f := range fields {
		str, err := r.ReadUTF16(int(counts[i]))
		if err != nil {
			return info
		}
		*f = str
	}
	return info
}

// selectProtocol sends the 0x02 protocol selection for the transport.
func selectProtocol(ch *mms.Channel, t *mms.Transport, p mms.Protocol) error {
	w := wire.NewWriter(64)
	w.Write32(0)
	w.Write32(0x000a0000)
	w.Write32(2)
	target := `\\192.168.0.1\TCP\1242`
	if p == mms.ProtocolUDP {
		target = fmt.Sprintf(`\\%s\UDP\%d`, t.LocalIP(), t.UDPPort())
	}
	if err := w.WriteUTF16(target); err != nil {
		return err
	}
	w.Write16('0')

	if err := ch.Send(mms.CmdProtocolSelect, 0, 0xffffffff, w.Bytes()); err != nil {
		return err
	}
	cmd, err := ch.Read(mms.ReplyProtocolOK, mms.ReplySocketClosed)
	if err != nil {
		return err
	}
	if cmd.ID == mms.ReplySocketClosed {
		return ErrProtocolRejected
	}
	return nil
}
