package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/kayz/kakaomap-mcp/internal/config"
	"github.com/kayz/kakaomap-mcp/internal/logger"
	"github.com/kayz/kakaomap-mcp/internal/mcp"
	"github.com/kayz/kakaomap-mcp/internal/metrics"
	"github.com/kayz/kakaomap-mcp/internal/tools"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// loadConfig applies flag > env > file > defaults.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFromPath(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("transport") {
		cfg.Transport = transport
	}
	if flags.Changed("port") {
		cfg.Port = port
	}
	if flags.Changed("kakao-api-key") {
		cfg.Kakao.APIKey = kakaoAPIKey
	}
	if !flags.Changed("log") && cfg.Logging.Level != "" {
		if level, err := logger.ParseLevel(cfg.Logging.Level); err == nil {
			logger.SetLevel(level)
		}
	}
	if !flags.Changed("log-format") && cfg.Logging.Format != "" {
		logger.SetFormat(cfg.Logging.Format)
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("FATAL: %v", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s := mcp.NewServer(cfg, tools.WithRecorder(metrics.Prometheus{}))
	return mcp.Serve(ctx, cfg, s)
}
