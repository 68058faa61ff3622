// Command logship reads log lines from stdin and ships them through an
// encrypted delivery pipeline. Lines are submitted as they arrive; on
// EOF or SIGINT/SIGTERM the pipeline is drained and closed.
//
//	tail -f /var/log/app.log | logship -config logship.yaml
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	logflux "github.com/logflux/logflux-go"
	"github.com/logflux/logflux-go/config"
	"github.com/logflux/logflux-go/pkg/types"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: LOGFLUX_* environment)")
	node := flag.String("node", "", "node identifier (overrides config)")
	levelName := flag.String("level", "info", "severity to submit lines at")
	metricsAddr := flag.String("metrics", "", "address to serve Prometheus metrics on (empty: disabled)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	level, err := types.ParseLevel(*levelName)
	if err != nil {
		slog.Error("invalid level", "level", *levelName, "err", err)
		os.Exit(1)
	}

	var cfg *config.Config
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.FromEnv(*node, os.Getenv(config.EnvSecret))
	}
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	if *node != "" {
		cfg.Node = *node
	}
	slog.Info("config loaded",
		"server_url", cfg.ServerURL,
		"node", cfg.Node,
		"queue_size", cfg.QueueSize,
		"workers", cfg.WorkerCount,
		"failsafe", cfg.Failsafe,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	p, err := logflux.New(cfg, logflux.WithLogger(logger))
	if err != nil {
		slog.Error("failed to start pipeline", "err", err)
		os.Exit(1)
	}

	// Watch config file for hot-reload. Pipeline settings are fixed at
	// construction; reloads are surfaced in the logs only.
	if *configPath != "" {
		go func() {
			if err := config.Watch(ctx, *configPath, func(updated *config.Config) {
				slog.Info("config hot-reloaded", "server_url", updated.ServerURL)
			}); err != nil {
				slog.Error("config watcher stopped", "err", err)
			}
		}()
	}

	if *metricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(logflux.NewCollector(p))
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			slog.Info("metrics listening", "addr", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				slog.Error("metrics server stopped", "err", err)
			}
		}()
	}

	// Read lines until EOF or signal. The scanner goroutine owns stdin;
	// cancellation just stops us consuming its output.
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := sc.Err(); err != nil {
			slog.Error("stdin read error", "err", err)
		}
	}()

	var submitted int
loop:
	for {
		select {
		case <-ctx.Done():
			slog.Info("logship shutting down")
			break loop
		case line, ok := <-lines:
			if !ok {
				break loop
			}
			if line == "" {
				continue
			}
			if err := p.Submit(line, level); err != nil {
				slog.Warn("submit failed", "err", err)
				continue
			}
			submitted++
		}
	}

	if err := p.Flush(5 * time.Second); err != nil {
		slog.Warn("flush incomplete", "remaining", p.Stats().QueueSize)
	}
	if err := p.Close(); err != nil {
		slog.Warn("close error", "err", err)
	}

	s := p.Stats()
	slog.Info("logship done",
		"submitted", submitted,
		"sent", s.TotalSent,
		"failed", s.TotalFailed,
		"dropped", s.TotalDropped,
	)
}
