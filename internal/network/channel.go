// Package network реализует протокол обмена событиями поверх потоковых
// соединений (TCP или KCP): кадрирование, нумерацию сообщений, сжатие
// и неблокирующий опрос сокетов из игрового цикла.
//
// Формат сообщения (big-endian):
//
//	int32  message_id          // с 1, +1 на каждое сообщение
//	uint16 compressed_length
//	[]byte zstd(body)          // body = (uint16 len, event payload)*
package network

import (
	"errors"
	"fmt"
	"math"
	"net"

	"github.com/annel0/mmo-manager/internal/logging"
	"github.com/annel0/mmo-manager/internal/protocol/events"
)

// DefaultMaxMessageSize предел несжатого тела сообщения. Выбран так,
// чтобы сжатый блоб гарантированно помещался в 16-битную длину.
const DefaultMaxMessageSize = 60 * 1024

// ChannelConfig настройки канала
type ChannelConfig struct {
	MaxMessageSize   int // предел несжатого тела
	CompressionLevel int // уровень zstd, 0 по умолчанию
}

// DefaultChannelConfig возвращает конфигурацию канала по умолчанию
func DefaultChannelConfig() ChannelConfig {
	return ChannelConfig{MaxMessageSize: DefaultMaxMessageSize}
}

func (c ChannelConfig) normalized() ChannelConfig {
	if c.MaxMessageSize <= 0 || c.MaxMessageSize > DefaultMaxMessageSize {
		c.MaxMessageSize = DefaultMaxMessageSize
	}
	return c
}

// Channel одно соединение: очередь исходящих событий, упаковка их
// в пронумерованные сжатые сообщения и разбор входящего потока.
// Используется только из игрового цикла.
type Channel struct {
	name    string
	remote  string
	pump    socketPump // nil для каналов без сокета (Feed/TakeOutbound)
	codec   *Codec
	logger  *logging.Logger
	metrics *Metrics
	cfg     ChannelConfig

	sendMessageID int32
	body          *WriteBuffer
	bodyEvents    int
	outbound      []byte

	recvMessageID int32
	hasRecvID     bool
	pendingID     int32
	hasPendingID  bool
	inbound       ReadBuffer
	received      []events.Event

	closed bool
	broken error
}

// NewChannel создаёт канал поверх соединения. conn может быть nil:
// тогда байты передаются вручную через Feed и TakeOutbound.
func NewChannel(name string, conn net.Conn, cfg ChannelConfig, logger *logging.Logger, metrics *Metrics) (*Channel, error) {
	cfg = cfg.normalized()
	codec, err := NewCodec(cfg.CompressionLevel, cfg.MaxMessageSize)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}

	ch := &Channel{
		name:          name,
		remote:        "local",
		codec:         codec,
		logger:        logger,
		metrics:       metrics,
		cfg:           cfg,
		sendMessageID: 1,
		body:          NewWriteBuffer(cfg.MaxMessageSize),
	}
	if conn != nil {
		ch.remote = conn.RemoteAddr().String()
		ch.pump = newConnPump(conn)
	}
	return ch, nil
}

// Name имя канала для логов
func (c *Channel) Name() string { return c.name }

// RemoteAddr адрес удалённой стороны
func (c *Channel) RemoteAddr() string {
	return c.remote
}

// SendMessageID идентификатор, который получит следующее сообщение
func (c *Channel) SendMessageID() int32 { return c.sendMessageID }

// RecvMessageID идентификатор последнего принятого сообщения
func (c *Channel) RecvMessageID() (int32, bool) { return c.recvMessageID, c.hasRecvID }

// QueueEvent сериализует событие и ставит его в очередь на отправку
func (c *Channel) QueueEvent(ev events.Event) error {
	payload, err := events.Encode(ev)
	if err != nil {
		return err
	}
	return c.QueuePayload(payload)
}

// QueuePayload ставит в очередь уже сериализованное событие.
// Если событие не помещается в текущее тело, тело закрывается в
// отдельное сообщение и начинается новое.
func (c *Channel) QueuePayload(payload []byte) error {
	if c.closed {
		return ErrChannelClosed
	}
	if err := CheckPayloadSize(payload, c.cfg.MaxMessageSize); err != nil {
		return err
	}

	if !c.body.WriteBlob(payload) {
		if err := c.finalize(); err != nil {
			return err
		}
		c.body.WriteBlob(payload)
	}
	c.bodyEvents++
	return nil
}

// CheckPayloadSize проверяет, что событие поместится в сообщение
func CheckPayloadSize(payload []byte, maxMessageSize int) error {
	if 2+len(payload) > maxMessageSize || len(payload) > MaxBlobSize {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrEventTooLarge, len(payload), maxMessageSize)
	}
	return nil
}

// Flush закрывает текущее тело в сообщение
func (c *Channel) Flush() error {
	return c.finalize()
}

// finalize сжимает тело, добавляет кадр в исходящий буфер и увеличивает id
func (c *Channel) finalize() error {
	if c.body.Len() == 0 {
		return nil
	}
	if c.sendMessageID == math.MaxInt32 {
		return fmt.Errorf("%w: message id overflow", ErrMessageTooLarge)
	}

	compressed := c.codec.Compress(c.body.Bytes())
	if len(compressed) > MaxBlobSize {
		return fmt.Errorf("%w: compressed %d bytes", ErrMessageTooLarge, len(compressed))
	}

	frame := NewWriteBuffer(0)
	frame.WriteInt32(c.sendMessageID)
	frame.WriteBlob(compressed)
	c.outbound = append(c.outbound, frame.Bytes()...)

	c.metrics.MessageSent(c.body.Len(), frame.Len(), c.bodyEvents)
	c.logger.Trace("%s: сообщение #%d, событий %d, %d -> %d байт",
		c.name, c.sendMessageID, c.bodyEvents, c.body.Len(), len(compressed))

	c.sendMessageID++
	c.body.Reset()
	c.bodyEvents = 0
	return nil
}

// TakeOutbound забирает накопленные байты для отправки
func (c *Channel) TakeOutbound() []byte {
	out := c.outbound
	c.outbound = nil
	return out
}

// PendingOutbound число байт, ожидающих отправки
func (c *Channel) PendingOutbound() int { return len(c.outbound) + c.body.Len() }

// SendData закрывает текущее тело и передаёт байты сокету, не блокируясь.
// Если писатель занят, байты остаются до следующего вызова.
func (c *Channel) SendData() error {
	if c.closed {
		return ErrChannelClosed
	}
	if err := c.finalize(); err != nil {
		return err
	}
	if c.pump == nil {
		return nil
	}
	if err := c.pump.Err(); err != nil {
		return err
	}
	if len(c.outbound) > 0 && c.pump.TrySend(c.outbound) {
		c.outbound = nil
	}
	return nil
}

// ReceiveData забирает всё, что успел прочитать сокет, и разбирает сообщения.
// Возвращает ErrDisconnected при закрытии соединения и ErrOutOfSync при
// рассинхронизации номеров.
func (c *Channel) ReceiveData() error {
	if c.closed {
		return ErrChannelClosed
	}
	if c.broken != nil {
		return c.broken
	}
	if c.pump == nil {
		return nil
	}
	// ошибку снимаем до разбора очереди: всё, что читатель успел
	// передать до сбоя, к этому моменту уже в очереди
	failure := c.pump.Err()
	for {
		chunk, ok := c.pump.TryReceive()
		if !ok {
			break
		}
		if err := c.Feed(chunk); err != nil {
			return err
		}
	}
	return failure
}

// Feed разбирает входящие байты. Может вызываться с кусками любого размера.
func (c *Channel) Feed(data []byte) error {
	if c.broken != nil {
		return c.broken
	}
	c.inbound.Feed(data)
	defer c.inbound.Compact()

	for {
		if !c.hasPendingID {
			id, ok := c.inbound.ReadInt32()
			if !ok {
				return nil
			}
			if c.hasRecvID && id != c.recvMessageID+1 {
				c.broken = fmt.Errorf("%w: got #%d after #%d", ErrOutOfSync, id, c.recvMessageID)
				c.metrics.ProtocolError("out_of_sync")
				return c.broken
			}
			c.pendingID = id
			c.hasPendingID = true
		}

		blob, ok := c.inbound.ReadBlob()
		if !ok {
			return nil
		}
		c.hasPendingID = false
		c.recvMessageID = c.pendingID
		c.hasRecvID = true
		c.metrics.MessageReceived(6 + len(blob))

		body, err := c.codec.Decompress(blob)
		if err != nil {
			c.broken = fmt.Errorf("message #%d: %w", c.recvMessageID, err)
			c.metrics.ProtocolError("decompress")
			c.logger.LogProtocolError(c.name, c.broken, blob)
			return c.broken
		}
		c.decodeBody(body)
	}
}

// decodeBody разбирает события из тела. Непригодные события и хвост
// логируются, но не рвут соединение.
func (c *Channel) decodeBody(body []byte) {
	rb := NewReadBuffer(body)
	for rb.Len() > 0 {
		payload, ok := rb.ReadBlob()
		if !ok {
			break
		}
		ev, err := events.Decode(payload)
		if err != nil {
			c.metrics.ProtocolError("decode")
			c.logger.LogProtocolError(c.name, fmt.Errorf("message #%d: %w", c.recvMessageID, err), payload)
			continue
		}
		c.metrics.EventReceived(ev.Kind())
		c.received = append(c.received, ev)
	}
	if rb.Len() > 0 {
		c.metrics.ProtocolError("trailing")
		c.logger.LogProtocolError(c.name,
			fmt.Errorf("%w: message #%d, %d bytes", ErrTrailingBytes, c.recvMessageID, rb.Len()), rb.Bytes())
	}
}

// ReceiveEvents возвращает разобранные события в порядке прихода
func (c *Channel) ReceiveEvents() []events.Event {
	evs := c.received
	c.received = nil
	return evs
}

// Close закрывает соединение
func (c *Channel) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.codec.Close()
	if c.pump == nil {
		return nil
	}
	if err := c.pump.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}
