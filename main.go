package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/jessevdk/go-flags"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"i4.energy/across/uwmodem/modem"
)

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	config, err := LoadConfig(WithDefaults(), WithFile(opts.ConfigFile), WithEnv(), WithFlags(parser, &opts))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: config.Level()}))

	if err := run(config, logger); err != nil {
		logger.Error("Exiting", "error", err)
		os.Exit(1)
	}
}

func run(config *Config, logger *slog.Logger) error {
	modemConfig, err := config.Modem.SessionConfig(logger)
	if err != nil {
		return err
	}

	session, err := modem.New(modemConfig)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := session.Start(ctx); err != nil {
		return err
	}

	logger.Info("Starting modem driver", "address", config.Modem.Address, "protocol", config.Modem.Protocol, "id", config.Modem.ID)

	hub := NewHub(logger.With("component", "events"))
	daemon := &Daemon{
		Logger:  logger.With("component", "daemon"),
		Session: session,
		Events:  hub,
	}

	var natsConn *nats.Conn
	var bridge *Bridge
	if config.NATSURL != "" {
		natsConn, err = nats.Connect(config.NATSURL)
		if err != nil {
			session.Stop()
			return err
		}
		bridge = NewBridge(natsConn, session, config.Modem.ID, logger.With("component", "nats"))
		if err := bridge.Subscribe(); err != nil {
			session.Stop()
			natsConn.Close()
			return err
		}
		daemon.Uplink = bridge
	}

	var redisClient *redis.Client
	if config.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: config.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis not reachable, shadow updates will be retried", "error", err)
		}
		// three missed checks expire the shadow
		daemon.Shadow = NewRedisShadow(redisClient, config.Modem.ID, 3*config.Modem.HealthCheckPeriod.Duration)
	}

	httpServer := &http.Server{
		Addr:    config.BindAddress,
		Handler: NewServer(logger.With("component", "server"), session, hub),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return daemon.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		return shutdown(httpServer, daemon, hub, bridge, natsConn, redisClient)
	})

	return g.Wait()
}

func shutdown(httpServer *http.Server, daemon *Daemon, hub *Hub, bridge *Bridge, natsConn *nats.Conn, redisClient *redis.Client) error {
	var errs *multierror.Error

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		errs = multierror.Append(errs, err)
	}

	// queued packets end with the session and still reach the subscribers
	daemon.Session.Stop()
	daemon.Flush()
	hub.Close()

	if bridge != nil {
		if err := bridge.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if natsConn != nil {
		if err := natsConn.Drain(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	return errs.ErrorOrNil()
}
