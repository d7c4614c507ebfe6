package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flags "github.com/jessevdk/go-flags"
	"github.com/op/go-logging"
	"github.com/thereayou/relay-chat/internal/config"
	"github.com/thereayou/relay-chat/internal/logger"
)

var log = logging.MustGetLogger("main")

func main() {
	config.LoadEnvFiles()

	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			fmt.Println(err)
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	closer, err := logger.Setup(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := NewServer(ctx, cfg)
	if err != nil {
		log.Criticalf("startup failed: %v", err)
		os.Exit(1)
	}
	if err := srv.Run(ctx); err != nil {
		log.Criticalf("server error: %v", err)
		os.Exit(1)
	}
}
