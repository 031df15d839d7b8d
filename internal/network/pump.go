package network

import (
	"errors"
	"fmt"
	"net"
	"sync"
)

const (
	readChunkSize  = 64 * 1024
	pumpQueueDepth = 256
)

// socketPump неблокирующая сторона соединения, которой пользуется Channel
type socketPump interface {
	Err() error
	TryReceive() ([]byte, bool)
	TrySend(frame []byte) bool
	Close() error
}

// connPump переносит байты между сокетом и игровым циклом.
// Блокирующие Read/Write выполняются в своих горутинах, игровой цикл
// только неблокирующе забирает и отдаёт готовые куски через каналы.
type connPump struct {
	conn net.Conn
	in   chan []byte
	out  chan []byte
	done chan struct{}

	failed  chan struct{}
	err     error
	errOnce sync.Once

	closeOnce sync.Once
	wg        sync.WaitGroup
}

func newConnPump(conn net.Conn) *connPump {
	p := &connPump{
		conn:   conn,
		in:     make(chan []byte, pumpQueueDepth),
		out:    make(chan []byte, pumpQueueDepth),
		done:   make(chan struct{}),
		failed: make(chan struct{}),
	}
	p.wg.Add(2)
	go p.receiveLoop()
	go p.sendLoop()
	return p
}

func (p *connPump) receiveLoop() {
	defer p.wg.Done()

	buf := make([]byte, readChunkSize)
	for {
		n, err := p.conn.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case p.in <- chunk:
			case <-p.done:
				return
			}
		}
		if err != nil {
			p.fail(err)
			return
		}
		if n == 0 {
			p.fail(ErrDisconnected)
			return
		}
	}
}

func (p *connPump) sendLoop() {
	defer p.wg.Done()

	for {
		select {
		case frame := <-p.out:
			n, err := p.conn.Write(frame)
			if err != nil {
				p.fail(err)
				return
			}
			if n == 0 && len(frame) > 0 {
				p.fail(fmt.Errorf("%w: zero bytes written", ErrDisconnected))
				return
			}
		case <-p.done:
			return
		}
	}
}

func (p *connPump) fail(err error) {
	p.errOnce.Do(func() {
		if !errors.Is(err, ErrDisconnected) {
			err = fmt.Errorf("%w: %w", ErrDisconnected, err)
		}
		p.err = err
		close(p.failed)
	})
}

// Err первая ошибка сокета или nil
func (p *connPump) Err() error {
	select {
	case <-p.failed:
		return p.err
	default:
		return nil
	}
}

// TryReceive забирает готовый кусок входящих байт, не блокируясь
func (p *connPump) TryReceive() ([]byte, bool) {
	select {
	case chunk := <-p.in:
		return chunk, true
	default:
		return nil, false
	}
}

// TrySend передаёт кадр писателю; false, если очередь заполнена
func (p *connPump) TrySend(frame []byte) bool {
	select {
	case p.out <- frame:
		return true
	default:
		return false
	}
}

// Close закрывает сокет и дожидается горутин
func (p *connPump) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		err = p.conn.Close()
		p.wg.Wait()
	})
	return err
}
