package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/annel0/mmo-manager/internal/game"
	"github.com/annel0/mmo-manager/internal/logging"
	"github.com/annel0/mmo-manager/internal/middleware"
)

// StatusSource источник снимков состояния игрового цикла
type StatusSource interface {
	Current() *game.Status
}

// RestServer read-only HTTP API администратора: здоровье, метрики,
// состояние мира и ресурсы процесса.
type RestServer struct {
	router  *gin.Engine
	http    *http.Server
	status  StatusSource
	metrics *ServerMetrics
	logger  *logging.Logger
	version string
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Port     string // адрес в формате ":8088"
	Status   StatusSource
	Registry *prometheus.Registry // nil — регистр по умолчанию
	Logger   *logging.Logger
	Version  string
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) *RestServer {
	if config.Port == "" {
		config.Port = ":8088"
	}
	if config.Logger == nil {
		config.Logger = logging.NewDiscardLogger()
	}
	if config.Version == "" {
		config.Version = "dev"
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// === Observability middleware ===
	router.Use(otelgin.Middleware("admin_api"))
	router.Use(middleware.NewRequestLogger(config.Logger).Handler())

	var reg prometheus.Registerer
	var gatherer prometheus.Gatherer
	if config.Registry != nil {
		reg, gatherer = config.Registry, config.Registry
	}
	router.Use(middleware.NewPrometheusMiddleware("admin_api", reg).Handler())
	middleware.RegisterMetricsEndpoint(router, gatherer)

	rs := &RestServer{
		router:  router,
		status:  config.Status,
		metrics: NewServerMetrics(),
		logger:  config.Logger,
		version: config.Version,
	}
	rs.http = &http.Server{
		Addr:              config.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	rs.setupRoutes()
	return rs
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	rs.router.GET("/health", rs.handleHealth)

	api := rs.router.Group("/api")
	{
		api.GET("/server", rs.handleServerInfo)
		api.GET("/stats", rs.handleStats)
		api.GET("/world", rs.handleWorld)
		api.GET("/actors/:id", rs.handleActor)
	}
}

// Handler http.Handler сервера (для тестов и встраивания)
func (rs *RestServer) Handler() http.Handler { return rs.router }

// handleHealth проверка состояния: 503, пока игровой цикл не сделал ни одного тика
func (rs *RestServer) handleHealth(c *gin.Context) {
	st := rs.status.Current()
	if st == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "starting", "time": time.Now().Unix()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"tick":   st.Tick,
		"time":   time.Now().Unix(),
	})
}

// handleServerInfo возвращает информацию о сервере
func (rs *RestServer) handleServerInfo(c *gin.Context) {
	info := gin.H{
		"version": rs.version,
		"name":    "MMO Manager Server",
		"status":  "running",
		"uptime":  rs.metrics.GetUptime(),
	}
	if st := rs.status.Current(); st != nil {
		info["tick"] = st.Tick
		info["clients"] = st.Clients
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Информация о сервере", Data: info})
}

// handleStats ресурсы процесса и счётчики игрового цикла
func (rs *RestServer) handleStats(c *gin.Context) {
	stats := gin.H{"server": rs.metrics.Snapshot()}
	if st := rs.status.Current(); st != nil {
		stats["game"] = gin.H{
			"tick":    st.Tick,
			"actors":  st.Actors,
			"heroes":  st.Heroes,
			"clients": st.Clients,
			"bus":     st.Bus,
		}
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Статистика сервера", Data: stats})
}

// handleWorld последний снимок мира целиком
func (rs *RestServer) handleWorld(c *gin.Context) {
	st := rs.status.Current()
	if st == nil {
		c.JSON(http.StatusServiceUnavailable, GenericResponse{Success: false, Message: "Игровой цикл ещё не запущен"})
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Состояние мира", Data: st})
}

// handleActor снимок одного актёра
func (rs *RestServer) handleActor(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: "Неверный идентификатор актёра"})
		return
	}
	st := rs.status.Current()
	if st != nil {
		for _, a := range st.States {
			if a.ActorID == id {
				c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Актёр", Data: a})
				return
			}
		}
	}
	c.JSON(http.StatusNotFound, GenericResponse{Success: false, Message: "Актёр не найден"})
}

// Start запускает REST сервер; блокируется до Shutdown
func (rs *RestServer) Start() error {
	rs.logger.Info("🌐 REST API слушает %s", rs.http.Addr)
	if err := rs.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown мягко останавливает сервер
func (rs *RestServer) Shutdown(ctx context.Context) error {
	return rs.http.Shutdown(ctx)
}
