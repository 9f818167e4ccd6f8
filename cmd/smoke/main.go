package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/rparrett/jornet/internal/smoketest"
	"github.com/rparrett/jornet/pkg/logger"
)

// Default configuration constants.
const (
	defaultPlayers     = 100
	defaultSubmissions = 20
	defaultTopN        = 25
	defaultTimeout     = 10 * time.Second
	defaultRunTimeout  = 5 * time.Minute
)

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:9080", "Base URL of the service")
		adminToken  = flag.String("admin-token", os.Getenv("JORNET_ADMIN_TOKEN"), "Admin bearer token for board provisioning")
		numPlayers  = flag.Int("players", defaultPlayers, "Number of players to register")
		submissions = flag.Int("submissions", defaultSubmissions, "Score submissions per player")
		topN        = flag.Int("top", defaultTopN, "Number of top entries to verify")
		workers     = flag.Int("workers", runtime.NumCPU()*2, "Number of concurrent submitters")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		verbose     = flag.Bool("verbose", false, "Log every submission")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	cfg := &smoketest.Config{
		BaseURL:              *baseURL,
		AdminToken:           *adminToken,
		NumPlayers:           *numPlayers,
		SubmissionsPerPlayer: *submissions,
		Workers:              *workers,
		TopN:                 *topN,
		Timeout:              *timeout,
		Verbose:              *verbose,
	}

	if err := smoketest.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "smoke run failed", logger.Error(err))
		os.Exit(1)
	}
}
