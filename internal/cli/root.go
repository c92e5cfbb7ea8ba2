package cli

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/smartinprabhu/newgpt/internal/logger"
)

var (
	cfgFile  string
	verbose  bool
	portFlag int
	memFlag  bool
)

// NewRootCommand creates and returns the root Cobra command for the newgpt CLI.
func NewRootCommand(runServerFunc func(cmd *cobra.Command, args []string), versionInfo VersionInfo) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "newgpt-server",
		Short: "NewGPT agent orchestration backend",
		Long:  `NewGPT is an asynchronous multi-agent orchestration backend for business analytics, forecasting, and capacity planning.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger.InitLogger(verbose)
			if verbose {
				logger.Logger.Debug().Msg("Verbose logging enabled.")
			}
			return nil
		},
		Run: runServerFunc,
	}

	var showVersion bool
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Print version information")

	originalRun := rootCmd.Run
	rootCmd.Run = func(cmd *cobra.Command, args []string) {
		if showVersion {
			fmt.Printf("NewGPT Agent Backend\n")
			fmt.Printf("  Version:    %s\n", versionInfo.Version)
			fmt.Printf("  Commit:     %s\n", versionInfo.Commit)
			fmt.Printf("  Built:      %s\n", versionInfo.Date)
			fmt.Printf("  Go version: %s\n", runtime.Version())
			fmt.Printf("  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
			return
		}
		originalRun(cmd, args)
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file (e.g., config/newgpt.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().IntVar(&portFlag, "port", 0, "Port for the server (overrides config if set)")
	rootCmd.PersistentFlags().BoolVar(&memFlag, "memory-store", false, "Use the in-process store instead of Redis")

	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(NewVersionCommand(versionInfo))

	serverCmd := &cobra.Command{
		Use:   "server",
		Short: "Run the NewGPT agent backend server",
		Long:  `Starts the NewGPT agent backend server, providing the execution and session APIs.`,
		Run:   runServerFunc,
	}
	rootCmd.AddCommand(serverCmd)

	return rootCmd
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
		viper.SetConfigName("newgpt")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
