package network

import "errors"

var (
	// ErrOutOfSync идентификатор входящего сообщения не равен предыдущему+1
	ErrOutOfSync = errors.New("message id out of sync")
	// ErrEventTooLarge событие не помещается в тело сообщения даже одно
	ErrEventTooLarge = errors.New("event too large for a message")
	// ErrMessageTooLarge сжатое тело не помещается в 16-битную длину
	ErrMessageTooLarge = errors.New("message too large")
	// ErrDisconnected соединение закрыто удалённой стороной или сломано
	ErrDisconnected = errors.New("disconnected")
	// ErrChannelClosed операция над закрытым каналом
	ErrChannelClosed = errors.New("channel closed")
	// ErrUnknownClient клиент с таким id не подключён
	ErrUnknownClient = errors.New("unknown client")
	// ErrNotConnected клиент ещё не подключён к серверу
	ErrNotConnected = errors.New("not connected")
	// ErrTrailingBytes в теле остались байты, не образующие событие
	ErrTrailingBytes = errors.New("trailing bytes in message body")
)

// disconnectReason метка причины отключения для метрик
func disconnectReason(err error) string {
	switch {
	case errors.Is(err, ErrOutOfSync):
		return "out_of_sync"
	case errors.Is(err, ErrMessageTooLarge), errors.Is(err, ErrEventTooLarge):
		return "too_large"
	case errors.Is(err, ErrDisconnected):
		return "closed"
	default:
		return "error"
	}
}
