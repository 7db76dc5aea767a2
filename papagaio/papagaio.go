// Package papagaio implements a Brazilian-Portuguese Discord companion bot.
//
// Inbound messages are filtered and cleaned, a bounded per-user rolling
// history is kept in memory, a persona prompt is assembled and sent to a
// hosted generative model, and the reply is chunked and delivered back into
// the channel as a reply-chain. Guild-level behavior (allowed channel,
// activation mode, private-message eligibility) is configured through
// admin-only slash commands and persisted.
package papagaio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

var defaultLogWriter io.Writer = os.Stdout

// Set at build time via:
// -ldflags "-X github.com/gezinff87-dev/papagaio/papagaio.Version=$$(date +'%Y%m%d')"
var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildTime = "unknown"
)

// Bot is the top-level application object: configuration, logging, the
// policy database, the gateway session, the model boundary, and the
// in-memory session store.
type Bot struct {
	config *Config

	logger     *slog.Logger
	logHandler slog.Handler

	db       *gorm.DB
	discord  *Discord
	llm      Generator
	sessions *SessionStore
	policies *PolicyStore
	api      *botAPI

	startedAt time.Time

	metricMessagesHandled atomic.Int64
	metricRepliesSent     atomic.Int64
	metricModelErrors     atomic.Int64
}

// New creates a Bot from the given config. Configuration is validated in
// Run, not here, so the caller can still adjust it.
func New(config *Config) (*Bot, error) {
	if config == nil {
		return nil, errors.New("nil config")
	}
	if config.HTTPClient == nil {
		config.HTTPClient = http.DefaultClient
	}

	b := &Bot{config: config}

	b.logHandler = tint.NewHandler(
		defaultLogWriter, &tint.Options{
			Level:     config.LogLevel,
			AddSource: true,
		},
	)
	b.logger = slog.New(b.logHandler)
	slog.SetDefault(b.logger)

	config.Discord.httpClient = config.HTTPClient
	disc := newDiscord(config.Discord)

	discordgo.Logger = discordgoLoggerFunc(
		context.Background(),
		tint.NewHandler(
			defaultLogWriter, &tint.Options{
				Level:     config.Discord.DiscordGoLogLevel,
				AddSource: true,
			},
		).WithAttrs([]slog.Attr{slog.String(loggerNameKey, "discordgo")}),
	)

	disc.logger = slog.New(
		tint.NewHandler(
			defaultLogWriter, &tint.Options{
				Level:     config.Discord.LogLevel,
				AddSource: true,
			},
		),
	).With(loggerNameKey, "discord")
	disc.bot = b
	b.discord = disc

	b.sessions = NewSessionStore(
		config.Chat.MaxTurns,
		config.Chat.UserLabel,
		config.Chat.PersonaName,
	)

	if config.API.Enabled {
		b.api = newAPI(b, config.API)
	}

	return b, nil
}

// ValidateConfig checks the config against its struct validation tags.
// A missing bot token or model credential fails here, before anything
// connects.
func (b *Bot) ValidateConfig() error {
	return structValidator.Struct(b.config)
}

// Run starts the bot and blocks until ctx is canceled or startup fails.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.ValidateConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	b.startedAt = time.Now()

	startCtx, startCancel := context.WithTimeout(ctx, b.config.StartupTimeout)
	defer startCancel()

	if err := b.initDB(startCtx); err != nil {
		return err
	}

	policies, err := NewPolicyStore(
		startCtx,
		b.db,
		b.config.Discord.CustomStatus,
		b.logger.With(loggerNameKey, "policy_store"),
	)
	if err != nil {
		return err
	}
	b.policies = policies

	llm, err := newGenerator(
		startCtx,
		b.config.LLM,
		slog.New(
			tint.NewHandler(
				defaultLogWriter, &tint.Options{
					Level:     b.config.LLM.LogLevel,
					AddSource: true,
				},
			),
		).With(loggerNameKey, "llm"),
	)
	if err != nil {
		return err
	}
	b.llm = llm

	session, err := b.discord.newSession()
	if err != nil {
		return err
	}
	b.discord.session = session

	b.discord.discordgoRemoveHandlerFuncs = []func(){
		session.AddHandler(b.discord.handlerReady()),
		session.AddHandler(b.discord.handlerConnect()),
		session.AddHandler(b.discord.handlerDisconnect()),
		session.AddHandler(b.handlerMessageCreate()),
		session.AddHandler(b.handlerInteractionCreate()),
	}

	if err = session.Open(); err != nil {
		return fmt.Errorf("error opening discord session: %w", err)
	}

	if _, err = b.discord.registerCommands(); err != nil {
		_ = session.Close()
		return fmt.Errorf("error registering commands: %w", err)
	}

	if status := b.policies.Settings().CustomStatus; status != "" {
		if statusErr := b.discord.updateCustomStatus(status); statusErr != nil {
			b.logger.Warn("unable to set custom status", tint.Err(statusErr))
		}
	}

	b.logger.Info("papagaio running")

	g, runCtx := errgroup.WithContext(ctx)
	if b.api != nil {
		g.Go(func() error {
			return b.api.Serve(runCtx)
		})
	}
	g.Go(func() error {
		<-runCtx.Done()
		return nil
	})

	runErr := g.Wait()
	b.shutdown()
	return runErr
}

// shutdown closes the gateway session, the status API and the database,
// bounded by the configured shutdown timeout.
func (b *Bot) shutdown() {
	ctx, cancel := context.WithTimeout(
		context.Background(), b.config.ShutdownTimeout,
	)
	defer cancel()

	b.logger.Info("shutting down")

	for _, removeHandler := range b.discord.discordgoRemoveHandlerFuncs {
		removeHandler()
	}
	if b.discord.session != nil {
		if err := b.discord.session.Close(); err != nil {
			b.logger.Error("error closing discord session", tint.Err(err))
		}
	}

	if b.api != nil {
		if err := b.api.Shutdown(ctx); err != nil {
			b.logger.Error("error shutting down status api", tint.Err(err))
		}
	}

	if b.db != nil {
		if sqlDB, err := b.db.DB(); err == nil {
			if closeErr := sqlDB.Close(); closeErr != nil {
				b.logger.Error("error closing database", tint.Err(closeErr))
			}
		}
	}

	b.logger.Info("shutdown complete")
}
