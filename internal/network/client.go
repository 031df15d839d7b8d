package network

import (
	"context"
	"errors"
	"fmt"

	"github.com/annel0/mmo-manager/internal/logging"
	"github.com/annel0/mmo-manager/internal/protocol/events"
)

// ClientConfig настройки клиента
type ClientConfig struct {
	Transport Transport
	Channel   ChannelConfig
}

// Client одно соединение с сервером. События сервера публикуются в poster,
// сбой соединения превращается в ClientDisconnected{ServerClientID}.
type Client struct {
	cfg     ClientConfig
	poster  Poster
	logger  *logging.Logger
	metrics *Metrics
	channel *Channel
}

// NewClient создаёт неподключённый клиент
func NewClient(cfg ClientConfig, poster Poster, logger *logging.Logger, metrics *Metrics) *Client {
	if cfg.Transport == "" {
		cfg.Transport = TransportTCP
	}
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Client{cfg: cfg, poster: poster, logger: logger, metrics: metrics}
}

// Connect подключается к серверу
func (c *Client) Connect(ctx context.Context, addr string) error {
	if c.channel != nil {
		return nil
	}
	conn, err := Dial(ctx, c.cfg.Transport, addr)
	if err != nil {
		return fmt.Errorf("connect %s: %w", addr, err)
	}
	ch, err := NewChannel("server", conn, c.cfg.Channel, c.logger, c.metrics)
	if err != nil {
		conn.Close()
		return err
	}

	c.channel = ch
	c.metrics.Connected()
	c.logger.Info("🔌 Подключение к серверу %s (%s)", addr, c.cfg.Transport)
	c.poster.Post(events.ClientConnected{ClientID: events.ServerClientID})
	return nil
}

// Connected есть ли активное соединение
func (c *Client) Connected() bool { return c.channel != nil }

// SendEvent ставит событие в очередь на сервер
func (c *Client) SendEvent(ev events.Event) error {
	if c.channel == nil {
		return ErrNotConnected
	}
	if err := c.channel.QueueEvent(ev); err != nil {
		if !errors.Is(err, ErrEventTooLarge) {
			c.teardown(err)
		}
		return err
	}
	return nil
}

// ReadFromServer разбирает входящие данные и публикует события сервера
func (c *Client) ReadFromServer() {
	if c.channel == nil {
		return
	}
	err := c.channel.ReceiveData()
	for _, ev := range c.channel.ReceiveEvents() {
		c.poster.Post(ev)
	}
	if err != nil {
		c.teardown(err)
	}
}

// WriteToServer отправляет накопленные сообщения
func (c *Client) WriteToServer() {
	if c.channel == nil {
		return
	}
	if err := c.channel.SendData(); err != nil {
		c.teardown(err)
	}
}

// Close отключается от сервера без публикации события
func (c *Client) Close() error {
	if c.channel == nil {
		return nil
	}
	err := c.channel.Close()
	c.channel = nil
	c.metrics.Disconnected("shutdown")
	return err
}

func (c *Client) teardown(cause error) {
	if err := c.channel.Close(); err != nil {
		c.logger.Debug("Закрытие канала: %v", err)
	}
	c.channel = nil
	c.logger.Warn("⚠️ Соединение с сервером потеряно: %v", cause)
	c.metrics.Disconnected(disconnectReason(cause))
	c.poster.Post(events.ClientDisconnected{ClientID: events.ServerClientID})
}
