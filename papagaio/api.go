package papagaio

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/lmittmann/tint"
)

var structValidator = validator.New()

//goland:noinspection GoLinter
func init() {
	structValidator.SetTagName("binding")
}

// botAPI is a small read-only status server: health, runtime counters, and
// per-guild policy lookups. There's no mutating surface and no auth; bind it
// to localhost or keep it disabled.
type botAPI struct {
	bot    *Bot
	config *APIConfig
	engine *gin.Engine
	server *http.Server
	logger *slog.Logger
}

func newAPI(b *Bot, config *APIConfig) *botAPI {
	gin.SetMode(gin.ReleaseMode)

	a := &botAPI{
		bot:    b,
		config: config,
		logger: slog.New(
			tint.NewHandler(
				defaultLogWriter, &tint.Options{
					Level:     config.LogLevel,
					AddSource: true,
				},
			),
		).With(loggerNameKey, "api"),
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(a.logMiddleware())
	engine.Use(cors.New(config.CORS.GINConfig()))
	if config.Development {
		pprof.Register(engine)
	}

	engine.GET("/health", a.getHealth)
	engine.GET("/status", a.getStatus)
	engine.GET("/guilds/:guild_id/policy", a.getGuildPolicy)

	a.engine = engine
	a.server = &http.Server{
		Addr:              config.Listen,
		Handler:           engine,
		ReadTimeout:       config.ReadTimeout,
		ReadHeaderTimeout: config.ReadHeaderTimeout,
		WriteTimeout:      config.WriteTimeout,
		IdleTimeout:       config.IdleTimeout,
	}
	return a
}

func (a *botAPI) logMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		a.logger.Info(
			"request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(started),
		)
	}
}

// Serve listens until the server is shut down or ctx is canceled.
func (a *botAPI) Serve(ctx context.Context) error {
	listener, err := net.Listen(a.config.ListenNetwork, a.config.Listen)
	if err != nil {
		return err
	}
	a.logger.Info("status api listening", "listen", a.config.Listen)

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		return nil
	case serveErr := <-errCh:
		if errors.Is(serveErr, http.ErrServerClosed) {
			return nil
		}
		return serveErr
	}
}

func (a *botAPI) Shutdown(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}

func (a *botAPI) getHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type statusResponse struct {
	UptimeSeconds    float64 `json:"uptime_seconds"`
	GatewayConnected bool    `json:"gateway_connected"`
	GatewayConnects  int64   `json:"gateway_connects"`
	MessagesHandled  int64   `json:"messages_handled"`
	RepliesSent      int64   `json:"replies_sent"`
	ModelErrors      int64   `json:"model_errors"`
	ActiveSessions   int     `json:"active_sessions"`
	ConfiguredGuilds int     `json:"configured_guilds"`
	PVGlobalEnabled  bool    `json:"pv_global_enabled"`
}

func (a *botAPI) getStatus(c *gin.Context) {
	b := a.bot
	c.JSON(http.StatusOK, statusResponse{
		UptimeSeconds:    time.Since(b.startedAt).Seconds(),
		GatewayConnected: b.discord.connected.Load(),
		GatewayConnects:  b.discord.metricConnects.Load(),
		MessagesHandled:  b.metricMessagesHandled.Load(),
		RepliesSent:      b.metricRepliesSent.Load(),
		ModelErrors:      b.metricModelErrors.Load(),
		ActiveSessions:   b.sessions.UserCount(),
		ConfiguredGuilds: b.policies.GuildCount(),
		PVGlobalEnabled:  b.policies.Settings().PVGlobalEnabled,
	})
}

func (a *botAPI) getGuildPolicy(c *gin.Context) {
	guildID := c.Param("guild_id")
	if guildID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing guild id"})
		return
	}
	c.JSON(http.StatusOK, a.bot.policies.Get(guildID))
}
