package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/rentabot/rentabot/api"
	"github.com/rentabot/rentabot/common"
	"github.com/rentabot/rentabot/config"
	"github.com/rentabot/rentabot/manager"
)

func main() {
	descriptorPath := flag.String("descriptor", "rentabot-db.yml", "path to the YAML resource descriptor")
	port := flag.String("port", "8000", "port for the REST API to listen on")
	sweepInterval := flag.Duration("sweep-interval", config.DefaultSweepInterval, "how often expired locks and the reservation queue are processed")
	claimWindow := flag.Duration("claim-window", config.DefaultClaimWindow, "how long a fulfilled reservation stays claimable")
	verbose := flag.BoolP("verbose", "v", false, "enable debug logging")
	logJSON := flag.Bool("log-json", false, "emit logs as JSON")
	flag.Parse()

	if err := run(*descriptorPath, *port, *sweepInterval, *claimWindow, *verbose, *logJSON); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(descriptorPath, port string, sweepInterval, claimWindow time.Duration, verbose, logJSON bool) error {
	logger := common.NewLogger(verbose, logJSON)

	specs, err := config.LoadResourceDescriptor(descriptorPath)
	if err != nil {
		return fmt.Errorf("failed to load resource descriptor: %w", err)
	}

	managerConfig := config.NewManagerConfig()
	managerConfig.SweepInterval = sweepInterval
	managerConfig.ClaimWindow = claimWindow

	mgr, err := manager.New(managerConfig, logger)
	if err != nil {
		return fmt.Errorf("failed to create manager: %w", err)
	}

	if err := mgr.Seed(specs); err != nil {
		return fmt.Errorf("failed to seed resource pool: %w", err)
	}

	logger.Infof("Loaded %d resources from %s", len(specs), descriptorPath)

	apiConfig := config.NewAPIConfig()
	apiConfig.RestPort = port
	apiConfig.Verbose = verbose
	apiConfig.LogJSON = logJSON

	server := api.New(mgr, nil, logger, apiConfig)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return mgr.Run(groupCtx)
	})

	group.Go(func() error {
		return server.Run(groupCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}
