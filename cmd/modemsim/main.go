// Command modemsim emulates an S2C acoustic modem on a pseudo-terminal. It
// prints the terminal path to pass to uwmodemd as the modem address.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aymanbagabas/go-pty"
	"github.com/jessevdk/go-flags"
)

type Options struct {
	ID       int           `long:"id" default:"2" description:"Local acoustic address"`
	Loopback bool          `short:"l" long:"loopback" description:"Echo sent payloads back as received data"`
	Silent   bool          `long:"silent" description:"Never report progress for sends"`
	Delay    time.Duration `long:"delay" default:"50ms" description:"Delay between progress lines"`
	Verbose  bool          `short:"v" long:"verbose" description:"Log every command"`
}

func main() {
	var opts Options
	if _, err := flags.Parse(&opts); err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	tty, err := pty.New()
	if err != nil {
		logger.Error("Failed to open pseudo-terminal", "error", err)
		os.Exit(1)
	}
	defer tty.Close()
	fmt.Printf("tty path: %s\n", tty.Name())

	emulator := &Emulator{
		Logger:   logger,
		ID:       opts.ID,
		Loopback: opts.Loopback,
		Silent:   opts.Silent,
		Delay:    opts.Delay,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done := make(chan error, 1)
	go func() { done <- emulator.Serve(tty) }()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
	case err := <-done:
		if err != nil {
			logger.Error("Terminal closed", "error", err)
		}
	}
}
