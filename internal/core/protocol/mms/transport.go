// If you are AI: This file parses MMS URLs and opens the TCP control socket plus optional UDP data socket.

package mms

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Protocol selects how data packets are carried.
type Protocol int

const (
	ProtocolAuto Protocol = iota
	ProtocolTCP
	ProtocolUDP
)

// String returns the protocol name.
func (p Protocol) String() string {
	switch p {
	case ProtocolTCP:
		return "tcp"
	case ProtocolUDP:
		return "udp"
	default:
		return "auto"
	}
}

// ParseProtocol parses "auto", "tcp" or "udp". Empty means auto.
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return ProtocolAuto, nil
	case "tcp":
		return ProtocolTCP, nil
	case "udp":
		return ProtocolUDP, nil
	default:
		return ProtocolAuto, fmt.Errorf("unknown protocol %q", s)
	}
}

// URL is a parsed mms:// location.
type URL struct {
	Scheme string
	Host   string
	Port   int
	// Path is the media path sent to the server, without the leading slash.
	Path string
	// Protocol is the hint carried by the scheme (mmst/mmsu).
	Protocol Protocol
}

// ParseURL parses mms://, mmst:// and mmsu:// URLs. A missing scheme means mms.
func ParseURL(raw string) (*URL, error) {
	if !strings.Contains(raw, "://") {
		raw = "mms://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	out := &URL{Scheme: strings.ToLower(u.Scheme), Host: u.Hostname(), Port: DefaultPort}
	switch out.Scheme {
	case "mms":
		out.Protocol = ProtocolAuto
	case "mmst":
		out.Protocol = ProtocolTCP
	case "mmsu":
		out.Protocol = ProtocolUDP
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if out.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil || port <= 0 || port > 65535 {
			return nil, fmt.Errorf("%w: bad port %q", ErrInvalidURL, p)
		}
		out.Port = port
	}

	out.Path = strings.TrimPrefix(u.EscapedPath(), "/")
	if unescaped, err := url.PathUnescape(out.Path); err == nil {
		out.Path = unescaped
	}
	if u.RawQuery != "" {
		out.Path += "?" + u.RawQuery
	}
	return out, nil
}

// Address returns host:port for dialing.
func (u *URL) Address() string {
	return net.JoinHostPort(u.Host, strconv.Itoa(u.Port))
}

// String rebuilds the URL.
func (u *URL) String() string {
	return fmt.Sprintf("%s://%s/%s", u.Scheme, u.Address(), u.Path)
}

// DialFunc opens the control connection.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// DialOptions control transport setup.
type DialOptions struct {
	Timeout time.Duration
	// UDPPort is the local data port for UDP delivery; 0 picks an ephemeral port.
	UDPPort int
	Dial    DialFunc
}

// Transport owns the sockets of one connection attempt.
type Transport struct {
	TCP      net.Conn
	UDP      net.PacketConn
	Protocol Protocol
}

// Dial connects the TCP control socket and, for UDP delivery, binds a UDP
// socket on the same local address.
func Dial(ctx context.Context, u *URL, proto Protocol, opts DialOptions) (*Transport, error) {
	if proto == ProtocolAuto {
		return nil, errors.New("dial needs an explicit protocol")
	}
	dial := opts.Dial
	if dial == nil {
		d := &net.Dialer{Timeout: opts.Timeout}
		dial = d.DialContext
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	conn, err := dial(ctx, "tcp", u.Address())
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", u.Address(), err)
	}
	t := &Transport{TCP: conn, Protocol: proto}
	if proto != ProtocolUDP {
		return t, nil
	}

	bind := net.JoinHostPort(t.LocalIP(), strconv.Itoa(opts.UDPPort))
	pc, err := net.ListenPacket("udp", bind)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("bind udp %s: %w", bind, err)
	}
	t.UDP = pc
	return t, nil
}

// LocalIP returns the local address of the control connection.
func (t *Transport) LocalIP() string {
	if a, ok := t.TCP.LocalAddr().(*net.TCPAddr); ok {
		return a.IP.String()
	}
	host, _, err := net.SplitHostPort(t.TCP.LocalAddr().String())
	if err != nil {
		return "0.0.0.0"
	}
	return host
}

// UDPPort returns the bound UDP port, or 0 for TCP delivery.
func (t *Transport) UDPPort() int {
	if t.UDP == nil {
		return 0
	}
	if a, ok := t.UDP.LocalAddr().(*net.UDPAddr); ok {
		return a.Port
	}
	return 0
}

// Close closes both sockets. Closing unblocks any pending read.
func (t *Transport) Close() error {
	var errs []error
	if t.UDP != nil {
		errs = append(errs, t.UDP.Close())
	}
	if t.TCP != nil {
		errs = append(errs, t.TCP.Close())
	}
	return errors.Join(errs...)
}
