package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Sternrassler/pokedex-client/internal/config"
	"github.com/Sternrassler/pokedex-client/pkg/client"
	"github.com/Sternrassler/pokedex-client/pkg/history"
	"github.com/Sternrassler/pokedex-client/pkg/logging"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
	cfg      *config.Config
	logger   zerolog.Logger

	redisClient *redis.Client
	recorder    *history.Recorder
)

var rootCmd = &cobra.Command{
	Use:   "pokedex",
	Short: "Search the Pokédex API",
	Long: `pokedex queries a paginated Pokédex search API, following continuation
tokens until every page has been collected. It can also run as an HTTP proxy
that exposes the aggregated search together with metrics and search history.`,
	SilenceUsage:       true,
	PersistentPreRunE:  initializeApp,
	PersistentPostRunE: shutdownApp,
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setVersion(version, buildTime string) {
	rootCmd.Version = fmt.Sprintf("%s (built %s)", version, buildTime)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(historyCmd)
}

// initializeApp loads configuration, sets up logging and connects to Redis
// when history is enabled.
func initializeApp(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = logLevel
	}

	logger = logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Logging.Level),
		Pretty: cfg.Logging.Pretty,
		Output: os.Stderr,
	})

	if !cfg.Redis.Enabled {
		return nil
	}

	redisClient = redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err := redisClient.Ping(commandContext(cmd)).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unavailable, continuing without search history")
		redisClient.Close()
		redisClient = nil
		return nil
	}

	recorder = history.NewRecorder(redisClient, history.Config{
		Key:        cfg.History.Key,
		MaxEntries: cfg.History.MaxEntries,
	})
	logger.Debug().Str("addr", cfg.Redis.Addr).Msg("Search history enabled")

	return nil
}

func shutdownApp(cmd *cobra.Command, args []string) error {
	if redisClient != nil {
		return redisClient.Close()
	}
	return nil
}

// newClient builds a search client from the loaded configuration.
func newClient(chaos bool) (*client.Client, error) {
	clientCfg := client.DefaultConfig(cfg.API.BaseURL)
	clientCfg.UserAgent = cfg.API.UserAgent
	clientCfg.Timeout = cfg.API.Timeout
	clientCfg.Chaos = chaos
	if recorder != nil {
		clientCfg.History = recorder
	}

	c, err := client.New(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return c, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
