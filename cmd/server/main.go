package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/woozymasta/quickmap/internal/config"
	"github.com/woozymasta/quickmap/internal/logger"
	"github.com/woozymasta/quickmap/internal/server"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/pires/go-proxyproto"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile    string        `short:"c" long:"config"         env:"CONFIG_FILE"    description:"Path to configuration file"             default:"config.yaml"`
	EnvFile       string        `short:"e" long:"env-file"       env:"ENV_FILE"       description:"Dotenv file loaded before the config"   default:".env"`
	Addr          string        `short:"a" long:"addr"           env:"LISTEN_ADDRESS" description:"Address to listen on"                   default:"0.0.0.0"`
	BaseURL       string        `short:"b" long:"base-url"       env:"BASE_URL"       description:"Base URL of generated share links"`
	Port          int           `short:"p" long:"port"           env:"LISTEN_PORT"    description:"Port to listen on"                      default:"8080"`
	SweepInterval time.Duration `long:"sweep-interval"           env:"SWEEP_INTERVAL" description:"How often expired sessions are dropped" default:"1m"`
	ProxyProtocol bool          `long:"proxy-protocol"           env:"PROXY_PROTOCOL" description:"Accept PROXY protocol headers from a load balancer"`
}

func main() {
	// variables from .env are visible to go-flags env tags and ${VAR} in the config
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	envErr := godotenv.Load(envFile)

	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	// Setup Logging
	opts.Logger.Setup()

	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		log.Warn().Err(envErr).Str("file", envFile).Msg("Failed to load env file")
	}
	if opts.EnvFile != envFile {
		if err := godotenv.Load(opts.EnvFile); err != nil {
			log.Warn().Err(err).Str("file", opts.EnvFile).Msg("Failed to load env file")
		}
	}

	// Load Config
	cfg, err := config.Load(opts.ConfigFile)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("file", opts.ConfigFile).Msg("Configuration file not found, using defaults")
		cfg, err = config.Default(), nil
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}

	srvCtx, err := server.NewServerContext(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go srvCtx.Sessions.Run(ctx, opts.SweepInterval)

	listenAddr := fmt.Sprintf("%s:%d", opts.Addr, opts.Port)
	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", listenAddr).Msg("Failed to listen")
	}
	if opts.ProxyProtocol {
		ln = &proxyproto.Listener{Listener: ln, ReadHeaderTimeout: 10 * time.Second}
	}

	srv := &http.Server{
		Handler:           srvCtx.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Graceful shutdown failed")
		}
	}()

	log.Info().
		Str("addr", listenAddr).
		Str("base_url", cfg.BaseURL).
		Int("basemaps", len(cfg.Basemaps)).
		Int("max_sessions", cfg.Sessions.Max).
		Bool("proxy_protocol", opts.ProxyProtocol).
		Msg("Web server started")

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}

	log.Info().Msg("Web server stopped")
}
