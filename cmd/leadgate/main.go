// cmd/leadgate/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"leadgate/internal/common/config"
	"leadgate/internal/common/logger"
	"leadgate/internal/common/metrics"
	"leadgate/internal/common/observability"
	"leadgate/internal/narrator"
	"leadgate/internal/services/analysis"
	"leadgate/internal/services/delivery"
	"leadgate/internal/session"
	"leadgate/internal/sourcefile"
	"leadgate/internal/tui"
)

type rootOptions struct {
	configPath string
	apiURL     string
	metrics    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "leadgate:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "leadgate",
		Short:         "Rank contacts against a goal and unlock the full list by email",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv("LEADGATE_CONFIG"), "path to a config file")
	cmd.PersistentFlags().StringVar(&opts.apiURL, "api-url", "", "base URL of the analysis and delivery API")
	cmd.Flags().BoolVar(&opts.metrics, "metrics", false, "serve /metrics regardless of config")

	cmd.AddCommand(newInspectCmd())
	return cmd
}

func loadConfig(opts *rootOptions) (*config.Config, error) {
	if opts.apiURL != "" {
		if err := os.Setenv(config.BaseURLEnv, opts.apiURL); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.metrics {
		cfg.Metrics.Enabled = true
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config) error {

	zapLog := logger.NewWithOptions(logger.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog).With(map[string]interface{}{
		"app":         cfg.App.Name,
		"environment": cfg.App.Environment,
	})
	log.Info("starting leadgate", map[string]interface{}{
		"analyzeUrl":  cfg.API.AnalyzeURL(),
		"deliveryUrl": cfg.API.DeliveryURL(),
	})

	obs, err := observability.New(observability.Options{ServiceName: cfg.App.Name})
	if err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := obs.Shutdown(shutdownCtx); err != nil {
			zapLog.Warn("observability shutdown failed", zap.Error(err))
		}
	}()

	funnel := metrics.NewFunnel(prometheus.DefaultRegisterer)

	if cfg.Metrics.Enabled {
		srv := startMetricsServer(cfg.Metrics.Address, zapLog)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	analyzer := analysis.NewService(analysis.ServiceDependencies{
		Logger:        log,
		Observability: obs,
	}, analysis.NewConfig(cfg.API))

	deliverer := delivery.NewService(delivery.ServiceDependencies{
		Logger:        log,
		Observability: obs,
	}, delivery.NewConfig(cfg.API))

	ctrl, err := session.New(session.Options{
		Analyzer:    analyzer,
		Deliverer:   deliverer,
		Logger:      log,
		Metrics:     funnel,
		Narrator:    narratorConfig(cfg.Narrator),
		FinishDelay: config.GetDuration(cfg.Narrator.FinishDelay),
	})
	if err != nil {
		return err
	}
	defer ctrl.Close()

	if err := tui.Run(ctx, ctrl, sourcefile.Load); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	log.Info("leadgate stopped", nil)
	return nil
}

func narratorConfig(c config.NarratorConfig) narrator.Config {
	phrases := c.Phrases
	if len(phrases) == 0 {
		phrases = narrator.DefaultPhrases
	}
	return narrator.Config{
		Phrases:          phrases,
		MessageInterval:  config.GetDuration(c.MessageInterval),
		ProgressInterval: config.GetDuration(c.ProgressInterval),
		ProgressStep:     c.ProgressStep,
		ProgressCap:      c.ProgressCap,
	}
}

func startMetricsServer(addr string, zapLog *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		zapLog.Info("metrics server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("metrics server failed", zap.Error(err))
		}
	}()
	return srv
}
