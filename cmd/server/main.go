// relaychat serves a WebSocket chat room: plain lines go to everyone,
// "<from>@<to>: <text>" lines go to one user.
//
// Usage:
//
//	relaychat [--config file.yaml] [--host 127.0.0.1] [-p 9000] [--ssl --cert c --key k --chain ch]
//	          [--history path.db|memory] [--static dir] [--notify-sender]
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/Tyrowin/relaychat/internal/chat"
	"github.com/Tyrowin/relaychat/internal/history"
	"github.com/Tyrowin/relaychat/internal/server"
)

type flags struct {
	configPath   string
	host         string
	port         int
	ssl          bool
	cert         string
	key          string
	chain        string
	historyPath  string
	staticDir    string
	notifySender bool
	logLevel     string
	logFormat    string
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newFlagSet declares the command-line flags, bound to f.
func newFlagSet(f *flags) *pflag.FlagSet {
	fs := pflag.NewFlagSet("relaychat", pflag.ContinueOnError)
	fs.StringVar(&f.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&f.host, "host", "127.0.0.1", "listen host")
	fs.IntVarP(&f.port, "port", "p", 9000, "listen port")
	fs.BoolVar(&f.ssl, "ssl", false, "serve over TLS (https/wss)")
	fs.StringVar(&f.cert, "cert", "./server.crt", "TLS certificate file")
	fs.StringVar(&f.key, "key", "./server.key", "TLS private key file")
	fs.StringVar(&f.chain, "chain", "./server.chain", "TLS certificate chain file")
	fs.StringVar(&f.historyPath, "history", "", `broadcast history: SQLite path, or "memory"`)
	fs.StringVar(&f.staticDir, "static", "", "directory served under /static/")
	fs.BoolVar(&f.notifySender, "notify-sender", false, "tell senders when a direct message is not delivered")
	fs.StringVar(&f.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	fs.StringVar(&f.logFormat, "log-format", "text", "log format: text or json")
	return fs
}

func run(args []string) error {
	var f flags
	fs := newFlagSet(&f)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	logger, err := newLogger(os.Stderr, f.logLevel, f.logFormat)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	cfg, err := server.LoadConfigFile(f.configPath)
	if err != nil {
		return err
	}
	applyFlags(fs, &f, cfg)
	active := server.SetConfig(cfg)

	messageLog, closeLog, err := openHistory(active.HistoryPath, logger)
	if err != nil {
		return err
	}
	defer closeLog()

	relay := chat.NewRelay(chat.Config{
		History:      messageLog,
		NotifySender: active.NotifySender,
		Logger:       logger,
	})
	hub := server.NewHub(relay, logger)

	httpServer := server.CreateServer(active.Addr(), server.SetupRoutes(hub, logger))
	if err := server.ConfigureTLS(httpServer, active.TLS); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.StartServer(httpServer, logger)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownErr := server.ShutdownServer(httpServer, active.ShutdownTimeout, logger)
	if err := hub.Shutdown(active.ShutdownTimeout); err != nil {
		shutdownErr = errors.Join(shutdownErr, err)
	}
	return shutdownErr
}

// applyFlags overrides cfg with every flag given explicitly on the command line.
func applyFlags(fs *pflag.FlagSet, f *flags, cfg *server.Config) {
	if fs.Changed("host") {
		cfg.Host = f.host
	}
	if fs.Changed("port") {
		cfg.Port = f.port
	}
	if fs.Changed("ssl") {
		cfg.TLS.Enabled = f.ssl
	}
	if fs.Changed("cert") || (cfg.TLS.CertFile == "" && cfg.TLS.Enabled) {
		cfg.TLS.CertFile = f.cert
	}
	if fs.Changed("key") || (cfg.TLS.KeyFile == "" && cfg.TLS.Enabled) {
		cfg.TLS.KeyFile = f.key
	}
	if fs.Changed("chain") || (cfg.TLS.ChainFile == "" && cfg.TLS.Enabled) {
		cfg.TLS.ChainFile = f.chain
	}
	if fs.Changed("history") {
		cfg.HistoryPath = f.historyPath
	}
	if fs.Changed("static") {
		cfg.StaticDir = f.staticDir
	}
	if fs.Changed("notify-sender") {
		cfg.NotifySender = f.notifySender
	}
}

func openHistory(path string, logger *slog.Logger) (chat.MessageLog, func(), error) {
	switch path {
	case "":
		return nil, func() {}, nil
	case server.HistoryInMemory:
		return history.NewMemoryLog(chat.ReplayLimit), func() {}, nil
	}

	log, err := history.OpenSQLite(history.SQLiteConfig{Path: path, Logger: logger})
	if err != nil {
		return nil, nil, err
	}
	return log, func() { _ = log.Close() }, nil
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid --log-format %q", format)
	}
}
