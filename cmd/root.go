package cmd

import (
	"fmt"
	"os"

	"github.com/kayz/kakaomap-mcp/internal/logger"
	"github.com/spf13/cobra"
)

var (
	logLevel    string
	logFormat   string
	configPath  string
	transport   string
	port        int
	kakaoAPIKey string
)

var rootCmd = &cobra.Command{
	Use:   "kakaomap-mcp",
	Short: "MCP server recommending places in South Korea via the Kakao APIs",
	Long: `kakaomap-mcp exposes one MCP tool, kakao_map_place_recommender.

Given a Korean query such as "이태원 맛집" it searches Kakao Local, enriches
every place with related web documents and an image, and streams each place
to the client as a progress notification.

Modes:
  kakaomap-mcp                       Serve (default transport: sse on :8080)
  kakaomap-mcp serve --transport stdio
  kakaomap-mcp version`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,
	RunE:         runServe,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger.SetFormat(logFormat)
		level, err := logger.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		logger.SetLevel(level)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info",
		"Log level: trace, debug, info, warn, error, fatal, panic")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console",
		"Log encoding: console or json")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to kakaomap.yaml (default: next to the executable)")
	rootCmd.PersistentFlags().StringVar(&transport, "transport", "",
		"MCP transport: stdio or sse (overrides config)")
	rootCmd.PersistentFlags().IntVar(&port, "port", 0,
		"Port for the sse transport (overrides config)")
	rootCmd.PersistentFlags().StringVar(&kakaoAPIKey, "kakao-api-key", "",
		"Kakao REST API key (overrides KAKAO_API_KEY)")
}

func Execute() {
	defer logger.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
