package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/nftp/cmd/internal/logcfg"
	"github.com/danmuck/nftp/src/server"
	logs "github.com/danmuck/smplog"
)

func main() {
	logs.Configure(logcfg.Load())

	configPath := flag.String("config", "", "TOML config file")
	addr := flag.String("addr", server.DefaultAddress, "TCP listen address")
	root := flag.String("root", ".", "directory to serve")
	maxConns := flag.Int("max-conns", 256, "concurrent connection limit, 0 = unlimited")
	metricsAddr := flag.String("metrics-addr", "", "admin HTTP address for /health and /metrics")
	requestTimeout := flag.Duration("request-timeout", time.Minute, "read and execute budget per request")
	flag.Parse()

	cfg := server.DefaultConfig(*root)
	if *configPath != "" {
		loaded, err := server.LoadConfig(*configPath, cfg)
		if err != nil {
			logs.Fatalf(err, "failed to load config %s", *configPath)
		}
		cfg = loaded
	}

	// flags given on the command line win over the file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Address = *addr
		case "root":
			cfg.Root = *root
		case "max-conns":
			cfg.MaxConnections = *maxConns
		case "metrics-addr":
			cfg.MetricsAddress = *metricsAddr
		case "request-timeout":
			cfg.RequestTimeout = *requestTimeout
		}
	})

	srv, err := server.New(cfg)
	if err != nil {
		logs.Fatalf(err, "failed to init server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.ServeAdmin(ctx); err != nil {
			logs.Errorf(err, "admin HTTP stopped")
		}
	}()

	if err := srv.ListenAndServe(ctx); err != nil {
		logs.Fatalf(err, "server stopped")
	}
	logs.Infof("nftpd exited cleanly")
}
