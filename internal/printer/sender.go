package printer

import (
	"context"
	"fmt"
	"net"
	"time"
)

// DefaultPort is the raw-socket port ESC/POS network printers listen on.
const DefaultPort = 9100

// Sender delivers one encoded print payload to a printer.
type Sender interface {
	Send(ctx context.Context, data []byte) error
}

// NetworkSender prints over a raw TCP connection, one dial per job.
// Thermal printers drop idle connections, so holding one open buys
// nothing.
type NetworkSender struct {
	addr    string
	timeout time.Duration
}

// NewNetworkSender targets host:port; port 0 means DefaultPort.
func NewNetworkSender(host string, port int) *NetworkSender {
	if port == 0 {
		port = DefaultPort
	}
	return &NetworkSender{
		addr:    net.JoinHostPort(host, fmt.Sprint(port)),
		timeout: 5 * time.Second,
	}
}

func (s *NetworkSender) Send(ctx context.Context, data []byte) error {
	d := net.Dialer{Timeout: s.timeout}
	conn, err := d.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("connecting to printer %s: %w", s.addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetWriteDeadline(deadline)
	} else {
		conn.SetWriteDeadline(time.Now().Add(s.timeout))
	}

	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("writing to printer %s: %w", s.addr, err)
	}
	return nil
}
