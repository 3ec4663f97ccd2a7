package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newsdesk/feedvet/internal/audit"
	"github.com/newsdesk/feedvet/internal/config"
	"github.com/newsdesk/feedvet/internal/feed"
	"github.com/newsdesk/feedvet/internal/fetch"
	"github.com/newsdesk/feedvet/internal/logging"
	"github.com/newsdesk/feedvet/internal/probe"
	"github.com/newsdesk/feedvet/internal/progress"
	"github.com/newsdesk/feedvet/internal/progress/sinks"
	"github.com/newsdesk/feedvet/internal/scheduler"
	"github.com/newsdesk/feedvet/internal/source"
)

type verifyFlags struct {
	input    string
	download string
	output   string
}

// newVerifyCmd creates and configures the 'verify' subcommand.
func newVerifyCmd() *cobra.Command {
	flags := &verifyFlags{}
	cmd := &cobra.Command{
		Use:   "verify [urls...]",
		Short: "Probe candidate URLs for working feeds",
		Long: `Probes each candidate URL for a working RSS or Atom feed. Candidates
come from positional arguments, a local listing (--input, plain text or PDF),
or a remote document fetched first (--download). Valid feeds and their cleaned
entry titles are written to the output JSON report.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd.Context(), flags, args)
		},
	}
	cmd.Flags().StringVar(&flags.input, "input", "", "local source document: .pdf or newline-delimited URL listing")
	cmd.Flags().StringVar(&flags.download, "download", "", "URL of a remote source document to download and extract")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "report path (overrides verify.output)")
	return cmd
}

func runVerify(parent context.Context, flags *verifyFlags, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	urls, err := gatherURLs(ctx, flags, args, cfg.HTTPTimeout())
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return errors.New("no candidate URLs: pass urls, --input, or --download")
	}

	sinkList := []progress.Sink{sinks.NewLogSink(logger)}
	var metricsSrv *http.Server
	if cfg.Metrics.Addr != "" {
		reg := prometheus.NewRegistry()
		promSink, err := sinks.NewPrometheusSink(reg)
		if err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		sinkList = append(sinkList, promSink)
		metricsSrv = startMetricsServer(cfg.Metrics.Addr, reg, logger)
	}

	hub := progress.NewHub(progress.Config{Logger: logger}, sinkList...)

	fetcher := fetch.New(fetch.Config{
		UserAgent: cfg.HTTP.UserAgent,
		Timeout:   cfg.HTTPTimeout(),
	})
	prober := probe.New(fetcher, probe.Config{MaxTitles: cfg.Verify.MaxTitles}, logger)
	sched, err := scheduler.New(prober, scheduler.Config{
		Workers:   cfg.Verify.Workers,
		Timeout:   cfg.ProbeTimeout(),
		HostRPS:   cfg.Verify.HostRPS,
		HostBurst: cfg.Verify.HostBurst,
	}, hub, logger)
	if err != nil {
		return err
	}

	result, stats := sched.Run(ctx, urls)

	for _, f := range audit.Run(result, audit.Config{
		MinTitleLen:   cfg.Audit.MinTitleLength,
		MinFeedTitles: cfg.Audit.MinFeedTitles,
	}) {
		logger.Warn("audit finding",
			zap.String("kind", string(f.Kind)),
			zap.String("url", f.URL),
			zap.String("title", f.Title),
			zap.Int("titles", len(f.Titles)),
		)
	}

	output := flags.output
	if output == "" {
		output = cfg.Verify.Output
	}
	if err := writeReport(output, result); err != nil {
		return err
	}
	logger.Info("report written",
		zap.String("path", output),
		zap.Int("total", stats.Total),
		zap.Int("valid", stats.Valid),
		zap.Float64("valid_percent", stats.ValidPercent()),
	)

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := hub.Close(closeCtx); err != nil {
		logger.Warn("progress hub close", zap.Error(err))
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(closeCtx); err != nil {
			logger.Warn("metrics server shutdown", zap.Error(err))
		}
	}
	return nil
}

// gatherURLs merges candidates from all three intake paths, in flag order,
// leaving dedupe to the scheduler.
func gatherURLs(ctx context.Context, flags *verifyFlags, args []string, timeout time.Duration) ([]string, error) {
	urls := append([]string(nil), args...)

	if flags.download != "" {
		dest := filepath.Join(os.TempDir(), downloadName(flags.download))
		if err := source.Download(ctx, flags.download, dest, timeout); err != nil {
			return nil, err
		}
		defer os.Remove(dest) //nolint:errcheck // temp file cleanup
		extracted, err := source.FromFile(dest)
		if err != nil {
			return nil, err
		}
		urls = append(urls, extracted...)
	}

	if flags.input != "" {
		extracted, err := source.FromFile(flags.input)
		if err != nil {
			return nil, err
		}
		urls = append(urls, extracted...)
	}
	return urls, nil
}

// downloadName derives a local filename from the source URL so that the .pdf
// extension, if any, survives into the extension dispatch in source.FromFile.
func downloadName(raw string) string {
	base := "feedvet-source.txt"
	u, err := url.Parse(raw)
	if err != nil {
		return base
	}
	if name := path.Base(u.Path); name != "." && name != "/" && name != "" {
		if strings.HasSuffix(strings.ToLower(name), ".pdf") {
			return "feedvet-source.pdf"
		}
	}
	return base
}

func startMetricsServer(addr string, reg *prometheus.Registry, logger *zap.Logger) *http.Server {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	logger.Info("metrics listener started", zap.String("addr", addr))
	return srv
}

// writeReport serializes the result mapping to indented JSON. Map keys are
// emitted in sorted order, so reports diff cleanly between runs.
func writeReport(dest string, result feed.Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(dest, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", dest, err)
	}
	return nil
}
