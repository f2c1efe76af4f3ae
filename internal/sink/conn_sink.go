package sink

import (
	"context"
	"crypto/tls"
	"encoding/binary"
	"fmt"
	"math"
	"net"
	"time"

	"github.com/richardpark-msft/rawdump/internal/format"
	"github.com/richardpark-msft/rawdump/internal/utils"
)

// Framing controls how payloads are delimited on the wire when replaying.
type Framing string

const (
	// FramingNone writes payloads back to back, exactly as they were captured.
	FramingNone Framing = "none"

	// FramingLength prefixes each payload with its length, as a big endian uint32.
	FramingLength Framing = "length"
)

func ParseFraming(s string) (Framing, error) {
	switch Framing(s) {
	case FramingNone, FramingLength:
		return Framing(s), nil
	default:
		return "", fmt.Errorf("invalid framing %q, must be %q or %q", s, FramingNone, FramingLength)
	}
}

type ConnSinkOptions struct {
	// TLS enables TLS when connecting to the collector.
	TLS bool

	// InsecureSkipVerify disables certificate verification, for collectors
	// using self-signed certificates.
	InsecureSkipVerify bool

	// Framing defaults to FramingNone.
	Framing Framing

	// DialTimeout defaults to 30 seconds.
	DialTimeout time.Duration
}

// maxFramedPayload is the largest payload a uint32 length prefix can describe.
var maxFramedPayload int64 = math.MaxUint32

// ConnSink replays payloads to a collector over TCP.
type ConnSink struct {
	conn    net.Conn
	framing Framing
}

// DialConnSink connects to endpoint (host:port).
func DialConnSink(ctx context.Context, endpoint string, options *ConnSinkOptions) (*ConnSink, error) {
	if endpoint == "" {
		panic("endpoint is not set")
	}

	if options == nil {
		options = &ConnSinkOptions{}
	}

	framing := options.Framing

	if framing == "" {
		framing = FramingNone
	}

	if _, err := ParseFraming(string(framing)); err != nil {
		return nil, err
	}

	dialTimeout := options.DialTimeout

	if dialTimeout == 0 {
		dialTimeout = 30 * time.Second
	}

	dialer := &net.Dialer{Timeout: dialTimeout}

	var conn net.Conn
	var err error

	if options.TLS {
		tlsDialer := &tls.Dialer{
			NetDialer: dialer,
			Config: &tls.Config{
				ServerName:         utils.HostOnly(endpoint),
				InsecureSkipVerify: options.InsecureSkipVerify,
			},
		}

		conn, err = tlsDialer.DialContext(ctx, "tcp", endpoint)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", endpoint)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", endpoint, err)
	}

	return &ConnSink{conn: conn, framing: framing}, nil
}

func (s *ConnSink) Send(ctx context.Context, rec format.Record) error {
	deadline, _ := ctx.Deadline()

	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}

	buffers := net.Buffers{rec.Payload}

	if s.framing == FramingLength {
		if int64(len(rec.Payload)) > maxFramedPayload {
			return fmt.Errorf("record %d is %d bytes, larger than the %d byte limit for length framing", rec.Index, len(rec.Payload), maxFramedPayload)
		}

		buffers = net.Buffers{binary.BigEndian.AppendUint32(nil, uint32(len(rec.Payload))), rec.Payload}
	}

	_, err := buffers.WriteTo(s.conn)
	return err
}

func (s *ConnSink) Close() error {
	return s.conn.Close()
}
