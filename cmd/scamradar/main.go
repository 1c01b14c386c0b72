package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"ScamRadar/internal/app"
	"ScamRadar/internal/config"
	"ScamRadar/internal/domain"
	"ScamRadar/internal/logging"
)

func main() {
	audioRef := flag.String("audio", "", "audio clip reference analyzed alongside the first URL")
	flag.Parse()

	urls := flag.Args()
	if len(urls) == 0 {
		fmt.Fprintln(os.Stderr, "usage: scamradar [-audio ref] URL [URL...]")
		os.Exit(2)
	}

	ctx := context.Background()
	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}

	candidates := make([]domain.Candidate, 0, len(urls))
	for i, u := range urls {
		c := domain.Candidate{URL: u}
		if i == 0 {
			c.AudioRef = *audioRef
		}
		candidates = append(candidates, c)
	}

	if err := application.Run(ctx, candidates); err != nil {
		logger.Error("application stopped", "error", err)
		os.Exit(1)
	}
}
