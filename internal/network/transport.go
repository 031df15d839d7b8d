package network

import (
	"context"
	"fmt"
	"net"

	"github.com/xtaci/kcp-go/v5"
)

// Transport тип транспорта под каналом
type Transport string

const (
	TransportTCP Transport = "tcp"
	TransportKCP Transport = "kcp"
)

// ParseTransport разбирает имя транспорта из конфигурации
func ParseTransport(name string) (Transport, error) {
	switch Transport(name) {
	case "", TransportTCP:
		return TransportTCP, nil
	case TransportKCP:
		return TransportKCP, nil
	default:
		return "", fmt.Errorf("unknown transport %q", name)
	}
}

// KCP: без шифрования, FEC 10 data + 3 parity
const (
	kcpDataShards   = 10
	kcpParityShards = 3
)

// Listen открывает слушающий сокет выбранного транспорта
func Listen(t Transport, addr string) (net.Listener, error) {
	switch t {
	case TransportTCP:
		return net.Listen("tcp", addr)
	case TransportKCP:
		l, err := kcp.ListenWithOptions(addr, nil, kcpDataShards, kcpParityShards)
		if err != nil {
			return nil, err
		}
		return &kcpListener{Listener: l}, nil
	default:
		return nil, fmt.Errorf("unknown transport %q", t)
	}
}

// Dial подключается к серверу выбранным транспортом
func Dial(ctx context.Context, t Transport, addr string) (net.Conn, error) {
	switch t {
	case TransportTCP:
		var d net.Dialer
		return d.DialContext(ctx, "tcp", addr)
	case TransportKCP:
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sess, err := kcp.DialWithOptions(addr, nil, kcpDataShards, kcpParityShards)
		if err != nil {
			return nil, err
		}
		tuneKCPSession(sess)
		return sess, nil
	default:
		return nil, fmt.Errorf("unknown transport %q", t)
	}
}

// kcpListener настраивает каждую принятую KCP-сессию
type kcpListener struct {
	*kcp.Listener
}

func (l *kcpListener) Accept() (net.Conn, error) {
	sess, err := l.AcceptKCP()
	if err != nil {
		return nil, err
	}
	tuneKCPSession(sess)
	return sess, nil
}

func tuneKCPSession(sess *kcp.UDPSession) {
	sess.SetStreamMode(true)
	sess.SetNoDelay(1, 20, 2, 1) // агрессивный режим для игр
	sess.SetWindowSize(512, 512)
}
