package network

import (
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"sync"

	"github.com/annel0/mmo-manager/internal/logging"
	"github.com/annel0/mmo-manager/internal/protocol/events"
)

// Poster принимает события для шины игрового цикла
type Poster interface {
	Post(ev events.Event)
}

// ServerConfig настройки сервера
type ServerConfig struct {
	Addr      string
	Transport Transport
	Channel   ChannelConfig
}

// Server принимает клиентов и обменивается с ними событиями.
// Все методы, кроме Start/Stop, вызываются только из игрового цикла.
type Server struct {
	cfg     ServerConfig
	poster  Poster
	logger  *logging.Logger
	metrics *Metrics

	listener net.Listener
	accepted chan net.Conn
	done     chan struct{}
	wg       sync.WaitGroup

	clients      map[uint64]*Channel
	nextClientID uint64
}

// NewServer создаёт сервер. События подключений и входящие события
// клиентов публикуются в poster.
func NewServer(cfg ServerConfig, poster Poster, logger *logging.Logger, metrics *Metrics) *Server {
	if cfg.Transport == "" {
		cfg.Transport = TransportTCP
	}
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Server{
		cfg:     cfg,
		poster:  poster,
		logger:  logger,
		metrics: metrics,
		clients: make(map[uint64]*Channel),
	}
}

// Start открывает слушающий сокет и запускает приём соединений
func (s *Server) Start() error {
	l, err := Listen(s.cfg.Transport, s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s %s: %w", s.cfg.Transport, s.cfg.Addr, err)
	}
	s.listener = l
	s.accepted = make(chan net.Conn, 16)
	s.done = make(chan struct{})

	s.wg.Add(1)
	go s.acceptLoop()

	s.logger.Info("🌐 Сервер слушает %s (%s)", l.Addr(), s.cfg.Transport)
	return nil
}

// Addr адрес слушающего сокета
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// acceptLoop принимает соединения в отдельной горутине и передаёт их
// игровому циклу через канал
func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("Ошибка accept: %v", err)
			continue
		}
		select {
		case s.accepted <- conn:
		case <-s.done:
			conn.Close()
			return
		}
	}
}

// AcceptPendingClients принимает не более одного ожидающего клиента.
// Возвращает id нового клиента или 0.
func (s *Server) AcceptPendingClients() uint64 {
	var conn net.Conn
	select {
	case conn = <-s.accepted:
	default:
		return 0
	}

	s.nextClientID++
	id := s.nextClientID
	ch, err := NewChannel("client-"+strconv.FormatUint(id, 10), conn, s.cfg.Channel, s.logger, s.metrics)
	if err != nil {
		s.logger.Error("Не удалось создать канал для %s: %v", conn.RemoteAddr(), err)
		conn.Close()
		return 0
	}

	s.clients[id] = ch
	s.metrics.Connected()
	s.logger.Info("🔌 Клиент %d подключился с %s", id, ch.RemoteAddr())
	s.poster.Post(events.ClientConnected{ClientID: id})
	return id
}

// ReadFromClients читает входящие данные всех клиентов и публикует
// их события как ClientEvent
func (s *Server) ReadFromClients() {
	for _, id := range s.ClientIDs() {
		ch := s.clients[id]
		err := ch.ReceiveData()
		for _, ev := range ch.ReceiveEvents() {
			s.poster.Post(events.ClientEvent{ClientID: id, Event: ev})
		}
		if err != nil {
			s.removeClient(id, err)
		}
	}
}

// WriteToClients отправляет накопленные сообщения всем клиентам
func (s *Server) WriteToClients() {
	for _, id := range s.ClientIDs() {
		if err := s.clients[id].SendData(); err != nil {
			s.removeClient(id, err)
		}
	}
}

// SendEvent ставит событие в очередь одному клиенту
func (s *Server) SendEvent(clientID uint64, ev events.Event) error {
	ch, ok := s.clients[clientID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownClient, clientID)
	}
	if err := ch.QueueEvent(ev); err != nil {
		if errors.Is(err, ErrEventTooLarge) {
			return err
		}
		s.removeClient(clientID, err)
		return err
	}
	return nil
}

// BroadcastEvent сериализует событие один раз и ставит его в очередь
// всем клиентам
func (s *Server) BroadcastEvent(ev events.Event) error {
	if len(s.clients) == 0 {
		return nil
	}
	payload, err := events.Encode(ev)
	if err != nil {
		return err
	}
	if err := CheckPayloadSize(payload, s.cfg.Channel.normalized().MaxMessageSize); err != nil {
		return err
	}
	for _, id := range s.ClientIDs() {
		if err := s.clients[id].QueuePayload(payload); err != nil {
			s.removeClient(id, err)
		}
	}
	return nil
}

// ClientIDs идентификаторы подключённых клиентов по возрастанию
func (s *Server) ClientIDs() []uint64 {
	ids := make([]uint64, 0, len(s.clients))
	for id := range s.clients {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ClientCount количество подключённых клиентов
func (s *Server) ClientCount() int { return len(s.clients) }

// Disconnect отключает клиента по инициативе сервера
func (s *Server) Disconnect(clientID uint64) bool {
	if _, ok := s.clients[clientID]; !ok {
		return false
	}
	s.removeClient(clientID, ErrChannelClosed)
	return true
}

// removeClient закрывает канал и публикует ClientDisconnected
func (s *Server) removeClient(id uint64, cause error) {
	ch, ok := s.clients[id]
	if !ok {
		return
	}
	delete(s.clients, id)
	if err := ch.Close(); err != nil {
		s.logger.Debug("Закрытие канала %d: %v", id, err)
	}

	if errors.Is(cause, ErrDisconnected) || errors.Is(cause, ErrChannelClosed) {
		s.logger.Info("👋 Клиент %d отключился: %v", id, cause)
	} else {
		s.logger.Warn("⚠️ Клиент %d отключён из-за ошибки: %v", id, cause)
	}
	s.metrics.Disconnected(disconnectReason(cause))
	s.poster.Post(events.ClientDisconnected{ClientID: id})
}

// Stop закрывает слушающий сокет и всех клиентов
func (s *Server) Stop() {
	if s.listener == nil {
		return
	}
	close(s.done)
	s.listener.Close()
	s.wg.Wait()
	s.listener = nil

	// соединения, принятые, но не переданные в цикл
	for {
		select {
		case conn := <-s.accepted:
			conn.Close()
			continue
		default:
		}
		break
	}

	for _, id := range s.ClientIDs() {
		s.clients[id].Close()
		delete(s.clients, id)
		s.metrics.Disconnected("shutdown")
	}
	s.logger.Info("🛑 Сервер остановлен")
}
