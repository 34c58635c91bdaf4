package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/kingrea/questify/internal/config"
	"github.com/kingrea/questify/internal/inference"
	"github.com/kingrea/questify/internal/logbook"
	"github.com/kingrea/questify/internal/logging"
	"github.com/kingrea/questify/internal/orchestrator"
	"github.com/kingrea/questify/internal/session"
	"github.com/kingrea/questify/internal/stubserver"
	"github.com/kingrea/questify/internal/tui"
)

var (
	workDir    string
	backendURL string
	model      string
	timeout    time.Duration
	stubHost   string
	stubPort   int
)

var rootCmd = &cobra.Command{
	Use:           "questify",
	Short:         "Upload a document and ask questions about it",
	Long:          `questify uploads a document to an inference service, shows the generated summary and answers free-form questions about it.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.Override(backendURL, model, timeout); err != nil {
			return err
		}
		lb, err := logbook.New(cfg.SessionLogPath())
		if err != nil {
			return err
		}
		client, err := inference.NewClient(cfg.BackendURL(), inference.WithTimeout(cfg.Timeout()))
		if err != nil {
			return err
		}
		orch := orchestrator.New(session.New(), client,
			orchestrator.WithModel(cfg.Model()),
			orchestrator.WithRequestTimeout(cfg.Timeout()),
			orchestrator.WithLogbook(lb),
		)
		app := tui.NewApp(orch, tui.WithLogbook(lb), tui.WithBackendLabel(client.BaseURL()))
		p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("error running TUI: %w", err)
		}
		return nil
	},
}

var serveStubCmd = &cobra.Command{
	Use:   "serve-stub",
	Short: "Run the local reference inference backend",
	Long:  `serve-stub runs an in-memory stand-in for the inference service that speaks the upload, summary and ask contract. It stops on interrupt.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := logging.New(cfg.StubLogPath())
		if err != nil {
			return err
		}
		defer logger.Close()
		logger.Mirror(cmd.ErrOrStderr())

		settings := stubserver.SettingsFromConfig(cfg)
		if cmd.Flags().Changed("host") {
			settings.Host = stubHost
		}
		if cmd.Flags().Changed("port") {
			settings.Port = stubPort
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		srv := stubserver.NewServer(settings, stubserver.WithLogger(logger))
		if err := srv.Start(ctx); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "reference backend listening on %s\n", srv.BaseURL())
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&workDir, "dir", "", "working directory holding .questify (defaults to the current directory)")
	rootCmd.Flags().StringVar(&backendURL, "backend", "", "inference service URL")
	rootCmd.Flags().StringVar(&model, "model", "", "answer model: bart, gpt2 or bert")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 0, "per-request timeout")
	serveStubCmd.Flags().StringVar(&stubHost, "host", "", "interface to bind")
	serveStubCmd.Flags().IntVar(&stubPort, "port", 0, "port to listen on (0 picks a free port)")
	rootCmd.AddCommand(serveStubCmd)
}

// Execute runs the root command and reports any error on stderr.
func Execute() error {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	dir := workDir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("error getting working directory: %w", err)
		}
		dir = cwd
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("error resolving %s: %w", workDir, err)
	}
	if err := config.InitQuestifyDir(dir); err != nil {
		return nil, fmt.Errorf("error initializing .questify directory: %w", err)
	}
	return config.NewConfig(dir)
}
