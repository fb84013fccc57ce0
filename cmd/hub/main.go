// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the NTalk License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/nishisan-dev/ntalk/internal/config"
	"github.com/nishisan-dev/ntalk/internal/hub"
	"github.com/nishisan-dev/ntalk/internal/logging"
)

func main() {
	configPath := flag.String("config", "/etc/ntalk/hub.yaml", "path to hub config file")
	listen := flag.String("listen", "", "override the configured listen address (host:port)")
	flag.Parse()

	cfg, err := config.LoadHubConfig(*configPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg = config.DefaultHubConfig()
		} else {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}
	if *listen != "" {
		cfg.Listen.Address = *listen
	}

	logger, logCloser := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File)
	defer logCloser.Close()

	h, err := hub.New(cfg, logger)
	if err != nil {
		logger.Error("could not build hub", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	if err := h.Run(ctx); err != nil {
		logger.Error("hub error", "error", err)
		var opErr *net.OpError
		if errors.As(err, &opErr) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
