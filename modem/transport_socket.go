package modem

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
)

// DefaultSocketHost is used when a socket address carries only a port.
const DefaultSocketHost = "127.0.0.1"

// SocketDialer connects to an acoustic modem, or a modem emulator, over a
// TCP or UDP socket. Addresses are "[host:]port"; the host defaults to
// DefaultSocketHost.
type SocketDialer struct {
	// Network is "tcp" or "udp". Empty selects "tcp".
	Network string
	// Listen makes the dialer accept a single inbound TCP connection on
	// the given port instead of connecting out.
	Listen bool
	Logger *slog.Logger
}

// SplitSocketAddress normalises "[host:]port" into a host and a port.
func SplitSocketAddress(address string) (string, int, error) {
	host, portText := DefaultSocketHost, address
	if i := strings.LastIndex(address, ":"); i >= 0 {
		host, portText = address[:i], address[i+1:]
		if host == "" {
			host = DefaultSocketHost
		}
	}
	port, err := strconv.Atoi(portText)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("socket address %q: invalid port", address)
	}
	return host, port, nil
}

func (d SocketDialer) Dial(ctx context.Context, address string) (Transport, error) {
	if address == "" {
		return nil, ErrNoAddress
	}
	host, port, err := SplitSocketAddress(address)
	if err != nil {
		return nil, err
	}
	network := d.Network
	if network == "" {
		network = "tcp"
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if d.Listen {
		if network != "tcp" {
			return nil, fmt.Errorf("listen on %s: only tcp is supported", network)
		}
		return d.accept(ctx, port, logger)
	}

	target := net.JoinHostPort(host, strconv.Itoa(port))
	var nd net.Dialer
	conn, err := nd.DialContext(ctx, network, target)
	if err != nil {
		return nil, fmt.Errorf("dial %s %s: %w", network, target, err)
	}
	if network == "udp" {
		// The peer only learns our address from a first datagram.
		if _, err := conn.Write([]byte("\n")); err != nil {
			conn.Close()
			return nil, fmt.Errorf("udp handshake with %s: %w", target, err)
		}
	}
	logger.Info("Socket connected", "network", network, "address", target)
	return conn, nil
}

func (d SocketDialer) accept(ctx context.Context, port int, logger *slog.Logger) (Transport, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", ":"+strconv.Itoa(port))
	if err != nil {
		return nil, fmt.Errorf("listen on port %d: %w", port, err)
	}
	defer ln.Close()

	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	logger.Info("Waiting for modem connection", "port", port)
	conn, err := ln.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("accept on port %d: %w", port, err)
	}
	logger.Info("Modem connected", "remote", conn.RemoteAddr().String())
	return conn, nil
}
