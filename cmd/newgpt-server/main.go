package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/smartinprabhu/newgpt/internal/capability"
	"github.com/smartinprabhu/newgpt/internal/cli"
	"github.com/smartinprabhu/newgpt/internal/config"
	"github.com/smartinprabhu/newgpt/internal/dataset"
	"github.com/smartinprabhu/newgpt/internal/logger"
	"github.com/smartinprabhu/newgpt/internal/orchestrator"
	"github.com/smartinprabhu/newgpt/internal/server"
	"github.com/smartinprabhu/newgpt/internal/storage"
)

// Build-time version information, injected via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	versionInfo := cli.VersionInfo{
		Version: version,
		Commit:  commit,
		Date:    date,
	}

	rootCmd := cli.NewRootCommand(runServer, versionInfo)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runServer contains the server startup logic invoked by the Cobra command.
func runServer(cmd *cobra.Command, args []string) {
	fmt.Println("NewGPT agent backend starting...")

	cfgFilePath, _ := cmd.Flags().GetString("config")
	cfg, err := loadConfig(cfgFilePath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cmd.Flags().Lookup("port").Changed {
		port, _ := cmd.Flags().GetInt("port")
		cfg.Server.Port = port
	}
	if envPort := os.Getenv("NEWGPT_PORT"); envPort != "" {
		if port, err := strconv.Atoi(envPort); err == nil {
			cfg.Server.Port = port
		}
	}
	if mem, err := cmd.Flags().GetBool("memory-store"); err == nil && mem {
		cfg.Redis.UseMemory = true
	}
	if key := os.Getenv("NEWGPT_CAPABILITY_API_KEY"); key != "" {
		cfg.Capability.APIKey = key
	}

	ctx := context.Background()

	var store storage.Store
	if cfg.Redis.UseMemory {
		logger.Logger.Info().Msg("using in-process memory store")
		store = storage.NewMemoryStore()
	} else {
		redisStore, err := storage.NewRedisStore(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatalf("Failed to connect to Redis at %s: %v", cfg.Redis.Addr, err)
		}
		logger.Logger.Info().Str("addr", cfg.Redis.Addr).Msg("connected to Redis")
		store = redisStore
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Logger.Warn().Err(err).Msg("store close failed")
		}
	}()

	provider := capability.NewOpenAIProvider(cfg.Capability)

	var datasets orchestrator.DatasetFetcher
	if cfg.Dataset.Enabled {
		datasets = dataset.NewClient(cfg.Dataset)
		logger.Logger.Info().Str("base_url", cfg.Dataset.BaseURL).Msg("dataset gateway enabled")
	}

	orch := orchestrator.New(cfg.Orchestration, store, provider, datasets)
	defer orch.Close()

	srv := server.New(cfg, store, orch, version)

	fmt.Printf("NewGPT server listening on port %d. Press Ctrl+C to exit.\n", cfg.Server.Port)
	if err := srv.Run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// loadConfig loads configuration from file and environment variables.
func loadConfig(configFile string) (*config.Config, error) {
	viper.SetEnvPrefix("NEWGPT")
	viper.AutomaticEnv()

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		if envConfigFile := os.Getenv("NEWGPT_CONFIG_FILE"); envConfigFile != "" {
			viper.SetConfigFile(envConfigFile)
		} else {
			viper.SetConfigName("newgpt")
			viper.SetConfigType("yaml")
			viper.AddConfigPath("./config")
			viper.AddConfigPath(".")
		}

		if err := viper.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				fmt.Println("No config file found, using environment variables and defaults.")
			} else {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg config.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}
