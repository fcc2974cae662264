package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/okian/rinkxg/internal/shotgen"
	"github.com/okian/rinkxg/pkg/logger"
)

// Default configuration constants.
const (
	defaultPlayers      = 60
	defaultShots        = 40
	defaultWorkers      = 2 // multiplier for runtime.NumCPU()
	defaultTimeout      = 30 * time.Second
	defaultProbeTimeout = 10 * time.Minute
)

func main() {
	var (
		out       = flag.String("out", "shots.csv", "CSV file to write")
		players   = flag.Int("players", defaultPlayers, "Number of players")
		shots     = flag.Int("shots", defaultShots, "Mean shots per player and strength state")
		strengths = flag.String("strengths", "ev,pp,sh", "Comma separated strength states")
		seed      = flag.Uint64("seed", 1, "RNG seed")
		probe     = flag.Bool("probe", false, "Probe the service after writing")
		baseURL   = flag.String("url", "http://localhost:9080", "Base URL of the service")
		workers   = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent probe workers")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		verbose   = flag.Bool("verbose", false, "Log every probe result")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		shotgen.ShowHelp()
		return
	}
	if err := logger.Init(); err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultProbeTimeout)
	defer cancel()

	cfg := &shotgen.Config{
		Players:        *players,
		ShotsPerPlayer: *shots,
		Strengths:      strings.Split(*strengths, ","),
		Seed:           *seed,
		OutputFile:     *out,
		BaseURL:        strings.TrimRight(*baseURL, "/"),
		Workers:        *workers,
		Timeout:        *timeout,
		Verbose:        *verbose,
	}

	if *out != "" {
		if _, err := shotgen.WriteFile(ctx, cfg); err != nil {
			_, _ = os.Stderr.WriteString("Generation failed: " + err.Error() + "\n")
			cancel()
			os.Exit(1) //nolint:gocritic // exitAfterDefer
		}
	}
	if *probe {
		if _, err := shotgen.Probe(ctx, cfg); err != nil {
			_, _ = os.Stderr.WriteString("Probe failed: " + err.Error() + "\n")
			cancel()
			os.Exit(1)
		}
	}
}
