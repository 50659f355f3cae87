package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"coinbase-pro-go/config"
	"coinbase-pro-go/logger"
	"coinbase-pro-go/metrics"
	"coinbase-pro-go/order"
	"coinbase-pro-go/rest"
	"coinbase-pro-go/sandbox"
)

const (
	exitOK = iota
	exitFailure
	exitConfig
)

func main() {
	os.Exit(realMain())
}

// realMain returns the process exit code so deferred cleanup runs before
// main exits.
func realMain() int {
	configPath := flag.String("config", "", "YAML config file; environment only when empty")
	serveSandbox := flag.Bool("sandbox", false, "serve the in-memory exchange on app.sandboxAddr")
	flag.Usage = usage
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitConfig
	}

	log, err := logger.New(cfg.App.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitConfig
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *serveSandbox {
		if err := runSandbox(ctx, cfg, log); err != nil {
			log.Error("sandbox stopped", zap.Error(err))
			return exitFailure
		}
		return exitOK
	}

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	if cfg.App.MetricsAddr != "" {
		metricsServer := metrics.StartServer(cfg.App.MetricsAddr, reg, log.Named("metrics"))
		defer metricsServer.Close()
	}

	restClient := rest.NewClient(cfg.Exchange.RestConfig(), &http.Client{Timeout: cfg.Exchange.Timeout},
		rest.WithLogger(log.Named("rest")),
		rest.WithObserver(collector),
	)

	result, err := run(ctx, order.NewAPI(restClient), flag.Args())
	if err != nil {
		log.Error("command failed", zap.Strings("args", flag.Args()), zap.Error(err))
		return exitFailure
	}

	if err := writeResult(os.Stdout, result); err != nil {
		log.Error("write result", zap.Error(err))
		return exitFailure
	}

	return exitOK
}

func writeResult(w io.Writer, result any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(result)
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}

	return config.LoadFile(path)
}

func runSandbox(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	listener, err := net.Listen("tcp", cfg.App.SandboxAddr)
	if err != nil {
		return err
	}

	srv := sandbox.NewServer(listener, sandbox.NewStore(sandbox.DefaultFeeRate), sandbox.Credentials{
		APIKey:     cfg.Exchange.APIKey,
		APISecret:  cfg.Exchange.APISecret,
		Passphrase: cfg.Exchange.Passphrase,
	}, log.Named("sandbox"))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	return srv.Serve(ctx)
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `usage: %s [flags] <command> [args]

commands:
  list [status...]                               list orders (default open, pending, active)
  get <order-id>                                 show one order, null when unknown
  get-client <client-oid>                        show one order by client id
  place <product> <buy|sell> <type> <size> [price]
  cancel <order-id> [product]                    cancel one order
  cancel-all [product]                           cancel every open order
  buy|sell <base> <quote> <amount>               idempotent market order

flags:
`, os.Args[0])
	flag.PrintDefaults()
}
