//nolint:lll // struct tags can't be split
package papagaio

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gin-contrib/cors"
)

const (
	EnvvarSetEnvPrefix = "PAPAGAIO_ENV_PREFIX"
	DefaultEnvPrefix   = "PAPAGAIO"

	DefaultDatabaseType          = "sqlite"
	DefaultDatabase              = "papagaio.sqlite3"
	DefaultDatabaseSlowThreshold = 200 * time.Millisecond

	DefaultLogLevel          = slog.LevelInfo
	DefaultDatabaseLogLevel  = slog.LevelInfo
	DefaultDiscordLogLevel   = slog.LevelWarn
	DefaultDiscordgoLogLevel = slog.LevelWarn
	DefaultLLMLogLevel       = slog.LevelInfo
	DefaultAPILogLevel       = slog.LevelInfo

	DefaultStartupTimeout  = 30 * time.Second
	DefaultShutdownTimeout = 60 * time.Second

	DefaultReadTimeout       = 5 * time.Second
	DefaultReadHeaderTimeout = 5 * time.Second
	DefaultWriteTimeout      = 10 * time.Second
	DefaultIdleTimeout       = 30 * time.Second
	DefaultAPIListen         = "127.0.0.1:5000"
	defaultListenNetwork     = "tcp"

	// discordMaxMessageLength is the hard ceiling Discord enforces on
	// message content. DefaultChunkSize stays under it on purpose, so a
	// chunk never bounces at the API even if Discord counts characters
	// slightly differently than we do.
	discordMaxMessageLength = 2000
	DefaultChunkSize        = 1900

	// DefaultMaxTurns bounds the per-user rolling history. Older turns are
	// evicted from the front once the bound is hit.
	DefaultMaxTurns = 10

	DefaultPersonaName   = "Papagaio"
	DefaultUserRoleLabel = "Usuário"

	LLMProviderGemini = "gemini"
	LLMProviderOpenAI = "openai"

	DefaultGeminiModel          = "gemini-1.5-flash"
	DefaultOpenAIModel          = "gpt-4o-mini"
	DefaultLLMRequestTimeout    = 30 * time.Second
	DefaultLLMRequestsPerSecond = 1

	DefaultDiscordGatewayIntent = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent

	DefaultDiscordStartupMessage = "🤖 Bot online!"
	DefaultDiscordCustomStatus   = "me mencione para conversar!"

	// DefaultModelErrorMessage is the single user-visible apology sent when
	// the model call fails. The request is abandoned after it: no retry, no
	// assistant turn stored.
	DefaultModelErrorMessage = "❌ Ocorreu um erro ao acessar a API. Tente de novo em instantes."

	// DefaultEmptyReplyMessage replaces a successful model response that
	// carried no extractable text, so an empty assistant turn is never
	// stored or sent.
	DefaultEmptyReplyMessage = "Hmm... fiquei sem palavras agora. Pode perguntar de novo?"

	// DefaultDeliveryErrorNotice is the one-shot fallback notice attempted
	// when sending reply content itself fails.
	DefaultDeliveryErrorNotice = "⚠️ Não consegui enviar a resposta completa."
)

var (
	DefaultCORSAllowMethods = []string{
		http.MethodGet,
		http.MethodOptions,
		http.MethodHead,
	}
	DefaultCORSAllowHeaders = []string{
		"Origin",
		"Content-Length",
		"Content-Type",
		"Accept",
		"Cache-Control",
	}
	DefaultCORSExposeHeaders = []string{
		"Content-Type",
		"Content-Length",
	}
	DefaultCORSMaxAge = 12 * time.Hour
)

type Config struct {
	// Database connection string, or SQLite file path
	Database string `yaml:"database" mapstructure:"database" json:"database"`

	// DatabaseType specifies the type of database, either 'sqlite' or 'postgres'
	DatabaseType string `yaml:"database_type" mapstructure:"database_type" json:"database_type" binding:"oneof=sqlite postgres"`

	// DatabaseLogLevel sets the log level for database operations
	DatabaseLogLevel *slog.LevelVar `yaml:"database_log_level" mapstructure:"database_log_level" json:"database_log_level"`

	// DatabaseSlowThreshold is the duration threshold for identifying slow database queries
	DatabaseSlowThreshold time.Duration `yaml:"database_slow_threshold" mapstructure:"database_slow_threshold" json:"database_slow_threshold"`

	// Discord configures aspects of the Discord bot itself
	Discord *DiscordConfig `yaml:"discord" mapstructure:"discord" json:"discord"`

	// LLM configures the upstream generative model call
	LLM *LLMConfig `yaml:"llm" mapstructure:"llm" json:"llm"`

	// Chat configures the conversation pipeline (history bound, chunking,
	// persona labels, fallback strings)
	Chat *ChatConfig `yaml:"chat" mapstructure:"chat" json:"chat"`

	// API configures the read-only status API server
	API *APIConfig `yaml:"api" mapstructure:"api" json:"api"`

	// LogLevel is the base log level, for the default logger
	LogLevel *slog.LevelVar `yaml:"log_level" mapstructure:"log_level" json:"log_level"`

	// StartupTimeout sets a limit on the amount of time the bot has to
	// initialize. If this is passed, the bot will abort startup.
	StartupTimeout time.Duration `yaml:"startup_timeout" mapstructure:"startup_timeout" json:"startup_timeout"`

	// ShutdownTimeout is the time to allow for a graceful shutdown. After this
	// elapses, the bot will force close all connections and exit.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout" json:"shutdown_timeout"`

	HTTPClient *http.Client `log:"[redacted]"`
}

// DiscordConfig configures the discord bot itself.
//
//nolint:lll // can't break tags
type DiscordConfig struct {
	// Discord bot token (from the 'Bot' tab in the discord dev portal)
	Token string `yaml:"token" mapstructure:"token" json:"token" log:"[redacted]" binding:"required"`

	// Discord application ID (from the 'General Information' tab in the discord dev portal)
	ApplicationID string `yaml:"application_id" mapstructure:"application_id" json:"application_id" binding:"required"`

	// GuildID specifies the guild ID used when registering slash commands.
	// Leave empty for commands to be registered as global.
	GuildID string `yaml:"guild_id" mapstructure:"guild_id" json:"guild_id"`

	// NotificationChannelID, if set, receives StartupMessage whenever the
	// bot connects to the discord gateway
	NotificationChannelID string `yaml:"notification_channel_id" mapstructure:"notification_channel_id" json:"notification_channel_id"`

	// StartupMessage is sent to NotificationChannelID on gateway connect
	StartupMessage string `yaml:"startup_message" mapstructure:"startup_message" json:"startup_message"`

	// CustomStatus is set as the bot user's custom status on startup
	CustomStatus string `yaml:"custom_status" mapstructure:"custom_status" json:"custom_status"`

	// Discord gateway intents. See: https://discord.com/developers/docs/topics/gateway#gateway-intents
	GatewayIntents discordgo.Intent `yaml:"gateway_intents" mapstructure:"gateway_intents" json:"gateway_intents"`

	// Base discord logging level
	LogLevel *slog.LevelVar `yaml:"log_level" mapstructure:"log_level" json:"log_level"`

	// Log level for the `discordgo` library's logger
	DiscordGoLogLevel *slog.LevelVar `yaml:"discordgo_log_level" mapstructure:"discordgo_log_level" json:"discordgo_log_level"`

	httpClient *http.Client
}

// LLMConfig configures the generative model boundary.
//
//nolint:lll // can't break tags
type LLMConfig struct {
	// Provider selects the backend: 'gemini' or 'openai'
	Provider string `yaml:"provider" mapstructure:"provider" json:"provider" binding:"oneof=gemini openai"`

	// GeminiAPIKey is the Google AI Studio API key
	GeminiAPIKey string `yaml:"gemini_api_key" mapstructure:"gemini_api_key" json:"gemini_api_key" log:"[redacted]" binding:"required_if=Provider gemini"`

	// GeminiModel is the Gemini model name
	GeminiModel string `yaml:"gemini_model" mapstructure:"gemini_model" json:"gemini_model"`

	// OpenAIToken is the OpenAI API token
	OpenAIToken string `yaml:"openai_token" mapstructure:"openai_token" json:"openai_token" log:"[redacted]" binding:"required_if=Provider openai"`

	// OpenAIModel is the chat completion model name
	OpenAIModel string `yaml:"openai_model" mapstructure:"openai_model" json:"openai_model"`

	// RequestTimeout bounds a single model call. The upstream default is
	// unbounded for practical purposes, so this is always applied.
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout" json:"request_timeout" binding:"min=1s"`

	// MaxRequestsPerSecond caps outbound model calls across all users
	MaxRequestsPerSecond float64 `yaml:"max_requests_per_second" mapstructure:"max_requests_per_second" json:"max_requests_per_second" binding:"gt=0"`

	// LLM base log level
	LogLevel *slog.LevelVar `yaml:"log_level" mapstructure:"log_level" json:"log_level"`
}

// ChatConfig configures the conversation pipeline.
//
//nolint:lll // can't break tags
type ChatConfig struct {
	// MaxTurns bounds each user's rolling history (oldest evicted first)
	MaxTurns int `yaml:"max_turns" mapstructure:"max_turns" json:"max_turns" binding:"min=1"`

	// ChunkSize is the maximum length of a single outbound message
	ChunkSize int `yaml:"chunk_size" mapstructure:"chunk_size" json:"chunk_size" binding:"min=1,max=2000"`

	// PersonaName is the assistant's display name, used as the assistant
	// role label in rendered history
	PersonaName string `yaml:"persona_name" mapstructure:"persona_name" json:"persona_name" binding:"required"`

	// UserLabel is the requester role label in rendered history
	UserLabel string `yaml:"user_label" mapstructure:"user_label" json:"user_label" binding:"required"`

	// ErrorMessage is sent when the model call fails
	ErrorMessage string `yaml:"error_message" mapstructure:"error_message" json:"error_message" binding:"required"`

	// EmptyReplyMessage replaces a model reply with no extractable text
	EmptyReplyMessage string `yaml:"empty_reply_message" mapstructure:"empty_reply_message" json:"empty_reply_message" binding:"required"`

	// DeliveryErrorNotice is the fallback notice attempted when sending
	// reply content fails
	DeliveryErrorNotice string `yaml:"delivery_error_notice" mapstructure:"delivery_error_notice" json:"delivery_error_notice" binding:"required"`
}

// APIConfig configures the read-only status API server
//
//nolint:lll // can't break tags
type APIConfig struct {
	// Determines if the status API should be active
	Enabled bool `yaml:"enabled" mapstructure:"enabled" json:"enabled"`

	// The address and port on which the server should listen (e.g., "127.0.0.1:5000")
	Listen string `yaml:"listen" mapstructure:"listen" json:"listen" binding:"required_if=Enabled true,hostname_port"`

	// The network type for listening (e.g., "tcp", "tcp4", "tcp6", "unix")
	ListenNetwork string `yaml:"listen_network" mapstructure:"listen_network" json:"listen_network" binding:"required_if=Enabled true,oneof=tcp tcp4 tcp6 unix"`

	// The logging level for the API server
	LogLevel *slog.LevelVar `yaml:"log_level" mapstructure:"log_level" json:"log_level"`

	// Cross-origin configuration
	CORS CORSConfig `yaml:"cors" mapstructure:"cors" json:"cors"`

	// Maximum duration for reading the entire request, including the body
	ReadTimeout time.Duration `yaml:"read_timeout" mapstructure:"read_timeout" json:"read_timeout" binding:"required_if=Enabled true,min=1s"`

	// Amount of time allowed to read request headers
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" mapstructure:"read_header_timeout" json:"read_header_timeout" binding:"required_if=Enabled true,min=1s"`

	// Maximum duration before timing out writes of the response
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout" json:"write_timeout" binding:"required_if=Enabled true,min=1s"`

	// Maximum amount of time to wait for the next request when keep-alives are enabled
	IdleTimeout time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout" json:"idle_timeout" binding:"required_if=Enabled true,min=1s"`

	// If true, pprof endpoints are registered on the status API
	Development bool `yaml:"development" mapstructure:"development" json:"development"`
}

// CORSConfig specifies cross-origin resource sharing settings
type CORSConfig struct {
	AllowOrigins     []string      `yaml:"allow_origins" mapstructure:"allow_origins" json:"allow_origins"`
	AllowMethods     []string      `yaml:"allow_methods" mapstructure:"allow_methods" json:"allow_methods"`
	AllowHeaders     []string      `yaml:"allow_headers" mapstructure:"allow_headers" json:"allow_headers"`
	ExposeHeaders    []string      `yaml:"expose_headers" mapstructure:"expose_headers" json:"expose_headers"`
	AllowCredentials bool          `yaml:"allow_credentials" mapstructure:"allow_credentials" json:"allow_credentials"`
	MaxAge           time.Duration `yaml:"max_age" mapstructure:"max_age" json:"max_age"`
}

func (c CORSConfig) GINConfig() cors.Config {
	return cors.Config{
		AllowOrigins:     c.AllowOrigins,
		AllowMethods:     c.AllowMethods,
		AllowHeaders:     c.AllowHeaders,
		MaxAge:           c.MaxAge,
		ExposeHeaders:    c.ExposeHeaders,
		AllowCredentials: c.AllowCredentials,
	}
}

func DefaultCORSConfig() CORSConfig {
	defaultMethods := make([]string, len(DefaultCORSAllowMethods))
	copy(defaultMethods, DefaultCORSAllowMethods)

	defaultHeaders := make([]string, len(DefaultCORSAllowHeaders))
	copy(defaultHeaders, DefaultCORSAllowHeaders)

	defaultExpose := make([]string, len(DefaultCORSExposeHeaders))
	copy(defaultExpose, DefaultCORSExposeHeaders)

	return CORSConfig{
		AllowOrigins:     []string{},
		AllowMethods:     defaultMethods,
		AllowHeaders:     defaultHeaders,
		ExposeHeaders:    defaultExpose,
		MaxAge:           DefaultCORSMaxAge,
		AllowCredentials: false,
	}
}

// DefaultConfig returns a Config with all default settings populated
func DefaultConfig() *Config {
	mainLogLevel := &slog.LevelVar{}
	dbLogLevel := &slog.LevelVar{}
	discordLogLevel := &slog.LevelVar{}
	discordgoLogLevel := &slog.LevelVar{}
	llmLogLevel := &slog.LevelVar{}
	apiLogLevel := &slog.LevelVar{}

	mainLogLevel.Set(DefaultLogLevel)
	dbLogLevel.Set(DefaultDatabaseLogLevel)
	discordLogLevel.Set(DefaultDiscordLogLevel)
	discordgoLogLevel.Set(DefaultDiscordgoLogLevel)
	llmLogLevel.Set(DefaultLLMLogLevel)
	apiLogLevel.Set(DefaultAPILogLevel)

	return &Config{
		DatabaseType:          DefaultDatabaseType,
		Database:              DefaultDatabase,
		DatabaseLogLevel:      dbLogLevel,
		DatabaseSlowThreshold: DefaultDatabaseSlowThreshold,
		LogLevel:              mainLogLevel,
		StartupTimeout:        DefaultStartupTimeout,
		ShutdownTimeout:       DefaultShutdownTimeout,
		Discord: &DiscordConfig{
			GatewayIntents:    DefaultDiscordGatewayIntent,
			LogLevel:          discordLogLevel,
			DiscordGoLogLevel: discordgoLogLevel,
			StartupMessage:    DefaultDiscordStartupMessage,
			CustomStatus:      DefaultDiscordCustomStatus,
		},
		LLM: &LLMConfig{
			Provider:             LLMProviderGemini,
			GeminiModel:          DefaultGeminiModel,
			OpenAIModel:          DefaultOpenAIModel,
			RequestTimeout:       DefaultLLMRequestTimeout,
			MaxRequestsPerSecond: DefaultLLMRequestsPerSecond,
			LogLevel:             llmLogLevel,
		},
		Chat: &ChatConfig{
			MaxTurns:            DefaultMaxTurns,
			ChunkSize:           DefaultChunkSize,
			PersonaName:         DefaultPersonaName,
			UserLabel:           DefaultUserRoleLabel,
			ErrorMessage:        DefaultModelErrorMessage,
			EmptyReplyMessage:   DefaultEmptyReplyMessage,
			DeliveryErrorNotice: DefaultDeliveryErrorNotice,
		},
		API: &APIConfig{
			Enabled:           false,
			Listen:            DefaultAPIListen,
			ListenNetwork:     defaultListenNetwork,
			LogLevel:          apiLogLevel,
			ReadHeaderTimeout: DefaultReadHeaderTimeout,
			ReadTimeout:       DefaultReadTimeout,
			WriteTimeout:      DefaultWriteTimeout,
			IdleTimeout:       DefaultIdleTimeout,
			CORS:              DefaultCORSConfig(),
		},
	}
}
