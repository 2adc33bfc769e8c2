package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"pdf-chatbot/internal/chat"
	"pdf-chatbot/internal/chatbot"
	"pdf-chatbot/internal/config"
	"pdf-chatbot/internal/helper"
	"pdf-chatbot/internal/metrics"
	"pdf-chatbot/internal/tui"
	"pdf-chatbot/internal/web"
)

const (
	defaultConfigPath = "./configs/config.yaml"
	chatTitle         = "Ask me about the documents!"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string
	root := &cobra.Command{
		Use:          "pdf-chatbot",
		Short:        "Answer the sample questions from the PDF folder and print them as JSON",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd.Context(), cfgPath)
		},
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", defaultConfigPath, "path to the config file")

	root.AddCommand(
		&cobra.Command{
			Use:   "ingest",
			Short: "Rebuild the vector index from the PDF folder",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runIngest(cmd.Context(), cfgPath)
			},
		},
		&cobra.Command{
			Use:   "chat",
			Short: "Chat with the documents in the terminal",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runChat(cmd.Context(), cfgPath)
			},
		},
		&cobra.Command{
			Use:   "serve",
			Short: "Serve the chat in the browser",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe(cmd.Context(), cfgPath)
			},
		},
	)
	return root
}

func loadConfig(cfgPath string) *config.Config {
	helper.SetupLogger("info", os.Stderr)
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	helper.SetupLogger(cfg.Log.Level, logOutput(cfg))
	log.Debug().Interface("config", cfg.Index).Msg("Loaded config")
	return cfg
}

func logOutput(cfg *config.Config) io.Writer {
	if cfg.Log.File == "" {
		return os.Stderr
	}
	f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Warn().Err(err).Str("file", cfg.Log.File).Msg("Error opening log file, logging to stderr")
		return os.Stderr
	}
	return f
}

// openService runs ingest, chunk and index in order; any failure is fatal
func openService(ctx context.Context, cfg *config.Config, rebuild bool) *chatbot.Service {
	svc, err := chatbot.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing chatbot")
	}
	if err := svc.Prepare(ctx, rebuild); err != nil {
		log.Fatal().Err(err).Msg("Error preparing index")
	}
	return svc
}

func runBatch(ctx context.Context, cfgPath string) error {
	cfg := loadConfig(cfgPath)
	svc := openService(ctx, cfg, false)
	defer svc.Close()

	results := svc.RunBatch(ctx, cfg.Questions)
	return helper.PrettyPrint(os.Stdout, results)
}

func runIngest(ctx context.Context, cfgPath string) error {
	cfg := loadConfig(cfgPath)
	svc := openService(ctx, cfg, true)
	defer svc.Close()

	log.Info().Str("dir", cfg.Index.Dir).Int("chunks", svc.Index().Len()).Msg("Index rebuilt")
	return nil
}

func runChat(ctx context.Context, cfgPath string) error {
	cfg := loadConfig(cfgPath)
	svc := openService(ctx, cfg, false)
	defer svc.Close()

	// keep the terminal UI clean
	if cfg.Log.File == "" {
		helper.SetupLogger(cfg.Log.Level, io.Discard)
	}

	session := chat.NewSession(svc)
	_, err := tea.NewProgram(tui.New(ctx, session, chatTitle), tea.WithAltScreen()).Run()
	return err
}

func runServe(ctx context.Context, cfgPath string) error {
	cfg := loadConfig(cfgPath)
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		log.Fatal().Err(err).Msg("Error registering metrics")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := openService(ctx, cfg, false)
	defer svc.Close()

	server := web.NewServer(chat.NewSession(svc), chatTitle)
	return web.ListenAndServe(ctx, cfg.Server.Addr, server.Handler())
}
