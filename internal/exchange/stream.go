package exchange

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"

	"tradecore/internal/models"
	"tradecore/pkg/utils"
)

// StreamConfig - конфигурация стрима исполнения
type StreamConfig struct {
	URL string

	// Начальная задержка перед переподключением
	InitialDelay time.Duration
	// Максимальная задержка (после exponential backoff)
	MaxDelay time.Duration
	// Максимальное количество попыток (0 = бесконечно)
	MaxRetries int
	// Таймаут подключения
	ConnectTimeout time.Duration
	// Интервал ping для проверки соединения
	PingInterval time.Duration
	// Таймаут ожидания записи ping
	WriteTimeout time.Duration
}

// DefaultStreamConfig возвращает конфигурацию по умолчанию:
// backoff 2s, 4s, 8s, 16s
func DefaultStreamConfig(url string) StreamConfig {
	return StreamConfig{
		URL:            url,
		InitialDelay:   2 * time.Second,
		MaxDelay:       16 * time.Second,
		MaxRetries:     0,
		ConnectTimeout: 10 * time.Second,
		PingInterval:   30 * time.Second,
		WriteTimeout:   10 * time.Second,
	}
}

// Состояние соединения стрима
type StreamState int32

const (
	StreamDisconnected StreamState = iota
	StreamConnecting
	StreamConnected
	StreamReconnecting
	StreamClosed
)

func (s StreamState) String() string {
	switch s {
	case StreamDisconnected:
		return "disconnected"
	case StreamConnecting:
		return "connecting"
	case StreamConnected:
		return "connected"
	case StreamReconnecting:
		return "reconnecting"
	case StreamClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Типы событий в конверте стрима
const (
	streamEventAccepted = "order_accepted"
	streamEventFill     = "execution_fill"
	streamEventCanceled = "order_canceled"
)

// streamEnvelope - конверт сообщения стрима: тип + полезная нагрузка
type streamEnvelope struct {
	Type string              `json:"type"`
	Data jsoniter.RawMessage `json:"data"`
}

// EventHandlers - приёмники событий исполнения.
// Реализуются пайплайном применения филлов.
type EventHandlers struct {
	OnAccepted func(models.OrderAccepted)
	OnFill     func(models.ExecutionFill)
	OnCanceled func(models.OrderCanceled)
}

// ExecutionStream - WebSocket стрим событий исполнения с автоматическим
// переподключением.
//
// Разрыв соединения обрабатывается exponential backoff; после успешного
// переподключения вызывается OnReconnect - координатор обязан перестроить
// состояние, потому что события за время разрыва потеряны.
type ExecutionStream struct {
	cfg      StreamConfig
	handlers EventHandlers
	log      *utils.Logger

	// Вызывается после восстановления соединения, разорванного сбоем
	OnReconnect func()

	conn   *websocket.Conn
	connMu sync.RWMutex

	state      int32 // atomic StreamState
	retryCount int32 // atomic

	closeOnce sync.Once
	closeChan chan struct{}
}

// NewExecutionStream создаёт стрим. handlers с nil-полями допустимы -
// соответствующие события игнорируются.
func NewExecutionStream(cfg StreamConfig, handlers EventHandlers, log *utils.Logger) *ExecutionStream {
	if log == nil {
		log = utils.GetGlobalLogger()
	}
	return &ExecutionStream{
		cfg:       cfg,
		handlers:  handlers,
		log:       log.WithComponent("execution_stream"),
		closeChan: make(chan struct{}),
	}
}

// State возвращает текущее состояние соединения
func (s *ExecutionStream) State() StreamState {
	return StreamState(atomic.LoadInt32(&s.state))
}

// IsConnected проверяет, установлено ли соединение
func (s *ExecutionStream) IsConnected() bool {
	return s.State() == StreamConnected
}

// Connect устанавливает соединение и запускает чтение
func (s *ExecutionStream) Connect() error {
	select {
	case <-s.closeChan:
		return fmt.Errorf("stream is closed")
	default:
	}

	atomic.StoreInt32(&s.state, int32(StreamConnecting))

	if err := s.dial(); err != nil {
		atomic.StoreInt32(&s.state, int32(StreamDisconnected))
		return err
	}

	atomic.StoreInt32(&s.state, int32(StreamConnected))
	atomic.StoreInt32(&s.retryCount, 0)

	go s.readPump()
	go s.pingPump()

	s.log.Info("execution stream connected", utils.String("url", s.cfg.URL))
	return nil
}

func (s *ExecutionStream) dial() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ConnectTimeout)
	defer cancel()

	dialer := websocket.Dialer{
		HandshakeTimeout: s.cfg.ConnectTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, s.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial error: %w", err)
	}

	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()
	return nil
}

// readPump читает и диспетчеризует сообщения стрима
func (s *ExecutionStream) readPump() {
	for {
		select {
		case <-s.closeChan:
			return
		default:
		}

		s.connMu.RLock()
		conn := s.conn
		s.connMu.RUnlock()

		if conn == nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			s.handleDisconnect(err)
			return
		}

		s.dispatch(message)
	}
}

// dispatch разбирает конверт и вызывает обработчик события.
// Неразборчивое сообщение логируется и пропускается - стрим не падает
// из-за одного битого события.
func (s *ExecutionStream) dispatch(message []byte) {
	var envelope streamEnvelope
	if err := json.Unmarshal(message, &envelope); err != nil {
		s.log.Warn("malformed stream message skipped", utils.Err(err))
		return
	}

	switch envelope.Type {
	case streamEventAccepted:
		var evt models.OrderAccepted
		if err := json.Unmarshal(envelope.Data, &evt); err != nil {
			s.log.Warn("malformed order_accepted payload", utils.Err(err))
			return
		}
		if s.handlers.OnAccepted != nil {
			s.handlers.OnAccepted(evt)
		}

	case streamEventFill:
		var fill models.ExecutionFill
		if err := json.Unmarshal(envelope.Data, &fill); err != nil {
			s.log.Warn("malformed execution_fill payload", utils.Err(err))
			return
		}
		if s.handlers.OnFill != nil {
			s.handlers.OnFill(fill)
		}

	case streamEventCanceled:
		var evt models.OrderCanceled
		if err := json.Unmarshal(envelope.Data, &evt); err != nil {
			s.log.Warn("malformed order_canceled payload", utils.Err(err))
			return
		}
		if s.handlers.OnCanceled != nil {
			s.handlers.OnCanceled(evt)
		}

	default:
		s.log.Debug("unknown stream event skipped", utils.String("type", envelope.Type))
	}
}

// pingPump поддерживает соединение живым
func (s *ExecutionStream) pingPump() {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.closeChan:
			return
		case <-ticker.C:
			s.connMu.RLock()
			conn := s.conn
			s.connMu.RUnlock()

			if conn == nil || s.State() != StreamConnected {
				return
			}

			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.log.Warn("ping failed", utils.Err(err))
				s.handleDisconnect(err)
				return
			}
		}
	}
}

// handleDisconnect обрабатывает разрыв соединения
func (s *ExecutionStream) handleDisconnect(err error) {
	select {
	case <-s.closeChan:
		return
	default:
	}

	// Избегаем повторной обработки одного разрыва
	state := s.State()
	if state == StreamReconnecting || state == StreamClosed {
		return
	}
	atomic.StoreInt32(&s.state, int32(StreamReconnecting))

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.connMu.Unlock()

	if err != nil {
		s.log.Warn("execution stream disconnected", utils.Err(err))
	}

	go s.reconnectLoop()
}

// reconnectLoop переподключается с exponential backoff.
// После успеха вызывает OnReconnect: события за время разрыва потеряны,
// локальное состояние нужно перестраивать.
func (s *ExecutionStream) reconnectLoop() {
	delay := s.cfg.InitialDelay

	for {
		select {
		case <-s.closeChan:
			return
		default:
		}

		retryCount := atomic.AddInt32(&s.retryCount, 1)

		if s.cfg.MaxRetries > 0 && int(retryCount) > s.cfg.MaxRetries {
			s.log.Error("max reconnect attempts reached",
				utils.Int("attempts", s.cfg.MaxRetries))
			atomic.StoreInt32(&s.state, int32(StreamDisconnected))
			return
		}

		s.log.Info("reconnecting execution stream",
			utils.String("delay", delay.String()),
			utils.Int("attempt", int(retryCount)))

		select {
		case <-s.closeChan:
			return
		case <-time.After(delay):
		}

		if err := s.dial(); err != nil {
			s.log.Warn("reconnect failed", utils.Err(err))

			delay *= 2
			if delay > s.cfg.MaxDelay {
				delay = s.cfg.MaxDelay
			}
			continue
		}

		atomic.StoreInt32(&s.state, int32(StreamConnected))
		atomic.StoreInt32(&s.retryCount, 0)

		go s.readPump()
		go s.pingPump()

		s.log.Info("execution stream reconnected")

		if s.OnReconnect != nil {
			s.OnReconnect()
		}
		return
	}
}

// Close закрывает стрим и останавливает переподключение.
// Повторный вызов безопасен.
func (s *ExecutionStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closeChan)
		atomic.StoreInt32(&s.state, int32(StreamClosed))

		s.connMu.Lock()
		defer s.connMu.Unlock()
		if s.conn != nil {
			err = s.conn.Close()
			s.conn = nil
		}
	})
	return err
}

// RetryCount возвращает текущее количество попыток переподключения
func (s *ExecutionStream) RetryCount() int {
	return int(atomic.LoadInt32(&s.retryCount))
}
