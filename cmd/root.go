package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"reflect"
	"strings"
	"syscall"

	"github.com/gezinff87-dev/papagaio/papagaio"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfg        = papagaio.DefaultConfig()
	configFile string
)

var rootCmd = &cobra.Command{
	Use: "papagaio [flags]",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		err := viper.Unmarshal(
			cfg,
			viper.DecodeHook(
				mapstructure.ComposeDecodeHookFunc(
					mapstructure.StringToTimeDurationHookFunc(),
					LevelToStringHookFunc(),
				),
			),
		)
		if err != nil {
			log.Fatalln(err)
		}
	},
}

func getLogLevel(level string) (slog.Level, error) {
	switch strings.ToUpper(level) {
	case slog.LevelDebug.String():
		return slog.LevelDebug, nil
	case slog.LevelInfo.String():
		return slog.LevelInfo, nil
	case slog.LevelWarn.String():
		return slog.LevelWarn, nil
	case slog.LevelError.String():
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level: %s", level)
	}
}

// LevelToStringHookFunc decodes log level strings into *slog.LevelVar
// config fields.
func LevelToStringHookFunc() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data any,
	) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		if t.Kind() != reflect.Ptr {
			return data, nil
		}

		typ := t.Elem()

		if typ != reflect.TypeOf(slog.LevelVar{}) {
			return data, nil
		}
		lvl, err := getLogLevel(data.(string))
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %s", data)
		}
		lvlVar := &slog.LevelVar{}
		lvlVar.Set(lvl)
		return lvlVar, nil
	}
}

func Execute() {
	ctx, cancel := context.WithCancel(context.Background())
	rootCmd.SetContext(ctx)
	signals := make(chan os.Signal, 1)
	signal.Notify(
		signals,
		os.Interrupt,
		syscall.SIGHUP,
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer func() {
		signal.Stop(signals)
		cancel()
	}()
	go func() {
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
			//
		}
	}()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func initConfig() {
	if configFile == "" {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found")
		}
	} else {
		if err := godotenv.Load(configFile); err != nil {
			log.Printf("could not load env file %s", configFile)
		}
	}

	viper.SetDefault("database", papagaio.DefaultDatabase)
	viper.SetDefault("database_type", papagaio.DefaultDatabaseType)
	viper.SetDefault(
		"database_slow_threshold",
		papagaio.DefaultDatabaseSlowThreshold,
	)
	viper.SetDefault("database_log_level", papagaio.DefaultDatabaseLogLevel.String())

	viper.SetDefault("log_level", papagaio.DefaultLogLevel.String())
	viper.SetDefault("startup_timeout", papagaio.DefaultStartupTimeout)
	viper.SetDefault("shutdown_timeout", papagaio.DefaultShutdownTimeout)

	// Discord config
	viper.SetDefault("discord.token", "")
	viper.SetDefault("discord.application_id", "")
	viper.SetDefault("discord.guild_id", "")
	viper.SetDefault("discord.notification_channel_id", "")
	viper.SetDefault("discord.startup_message", papagaio.DefaultDiscordStartupMessage)
	viper.SetDefault("discord.custom_status", papagaio.DefaultDiscordCustomStatus)
	viper.SetDefault(
		"discord.gateway_intents",
		papagaio.DefaultDiscordGatewayIntent,
	)
	viper.SetDefault("discord.log_level", papagaio.DefaultDiscordLogLevel.String())
	viper.SetDefault(
		"discord.discordgo_log_level",
		papagaio.DefaultDiscordgoLogLevel.String(),
	)

	// LLM config
	viper.SetDefault("llm.provider", papagaio.LLMProviderGemini)
	viper.SetDefault("llm.gemini_api_key", "")
	viper.SetDefault("llm.gemini_model", papagaio.DefaultGeminiModel)
	viper.SetDefault("llm.openai_token", "")
	viper.SetDefault("llm.openai_model", papagaio.DefaultOpenAIModel)
	viper.SetDefault("llm.request_timeout", papagaio.DefaultLLMRequestTimeout)
	viper.SetDefault(
		"llm.max_requests_per_second",
		papagaio.DefaultLLMRequestsPerSecond,
	)
	viper.SetDefault("llm.log_level", papagaio.DefaultLLMLogLevel.String())

	// Chat pipeline config
	viper.SetDefault("chat.max_turns", papagaio.DefaultMaxTurns)
	viper.SetDefault("chat.chunk_size", papagaio.DefaultChunkSize)
	viper.SetDefault("chat.persona_name", papagaio.DefaultPersonaName)
	viper.SetDefault("chat.user_label", papagaio.DefaultUserRoleLabel)
	viper.SetDefault("chat.error_message", papagaio.DefaultModelErrorMessage)
	viper.SetDefault("chat.empty_reply_message", papagaio.DefaultEmptyReplyMessage)
	viper.SetDefault(
		"chat.delivery_error_notice",
		papagaio.DefaultDeliveryErrorNotice,
	)

	// Status API config
	viper.SetDefault("api.enabled", false)
	viper.SetDefault("api.listen", papagaio.DefaultAPIListen)
	viper.SetDefault("api.listen_network", "tcp")
	viper.SetDefault("api.log_level", papagaio.DefaultAPILogLevel.String())
	viper.SetDefault("api.read_timeout", papagaio.DefaultReadTimeout)
	viper.SetDefault("api.read_header_timeout", papagaio.DefaultReadHeaderTimeout)
	viper.SetDefault("api.write_timeout", papagaio.DefaultWriteTimeout)
	viper.SetDefault("api.idle_timeout", papagaio.DefaultIdleTimeout)
	viper.SetDefault("api.development", false)
	viper.SetDefault("api.cors.allow_origins", []string{})
	viper.SetDefault("api.cors.allow_methods", papagaio.DefaultCORSAllowMethods)
	viper.SetDefault("api.cors.allow_headers", papagaio.DefaultCORSAllowHeaders)
	viper.SetDefault("api.cors.expose_headers", papagaio.DefaultCORSExposeHeaders)
	viper.SetDefault("api.cors.max_age", papagaio.DefaultCORSMaxAge)
	viper.SetDefault("api.cors.allow_credentials", false)

	envPrefix := os.Getenv(papagaio.EnvvarSetEnvPrefix)
	if envPrefix == "" {
		envPrefix = papagaio.DefaultEnvPrefix
	}
	viper.SetEnvPrefix(envPrefix)

	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)
	viper.AutomaticEnv()

	// Convert values to correct types
	viper.Set(
		"api.cors.allow_origins",
		viper.GetStringSlice("api.cors.allow_origins"),
	)
	viper.Set(
		"api.cors.allow_methods",
		viper.GetStringSlice("api.cors.allow_methods"),
	)
	viper.Set(
		"api.cors.allow_headers",
		viper.GetStringSlice("api.cors.allow_headers"),
	)
	viper.Set(
		"api.cors.expose_headers",
		viper.GetStringSlice("api.cors.expose_headers"),
	)

	for _, key := range []string{
		"log_level",
		"database_log_level",
		"discord.log_level",
		"discord.discordgo_log_level",
		"llm.log_level",
		"api.log_level",
	} {
		logLevelVar, err := levelStringToLevelVar(viper.GetString(key))
		if err != nil {
			log.Fatalf("error parsing %s: %v", key, err)
		}
		viper.Set(key, logLevelVar)
	}
}

func levelStringToLevelVar(lvl string) (*slog.LevelVar, error) {
	level := &slog.LevelVar{}
	err := level.UnmarshalText([]byte(lvl))
	return level, err
}

//goland:noinspection GoLinter
func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(
		&configFile,
		"config",
		"",
		"Env file to load before reading the environment",
	)
}
