// Command runjob runs one job end to end in the foreground and prints its summary.
//
//	runjob [-auto-publish] [topic] [durationSeconds]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-playground/validator/v10"

	"github.com/autovideo/api/internal/bootstrap"
	"github.com/autovideo/api/internal/config"
	"github.com/autovideo/api/internal/model"
	"github.com/autovideo/api/internal/pipeline"
	"github.com/autovideo/api/internal/store"
)

const defaultTopic = "How to brand a small cafe"

func main() {
	os.Exit(run())
}

func run() int {
	autoPublish := flag.Bool("auto-publish", false, "publish as soon as captions are ready")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}
	logger := bootstrap.NewLogger(os.Stderr, cfg.Server.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	idea := ideaFromArgs(flag.Args())

	vendors := bootstrap.NewVendors(cfg)
	r2 := bootstrap.NewR2(ctx, cfg.R2, logger)
	jobs := store.NewMemoryStore()
	executor := pipeline.NewExecutor(jobs, vendors.Collaborators(r2, validator.New()), logger)
	orch := pipeline.NewOrchestrator(jobs, executor, cfg.Pipeline.AutoPublish, logger)

	job, runErr := orch.RunJobSync(ctx, idea, pipeline.StartOptions{AutoPublish: autoPublish})
	if job != nil {
		out, err := json.MarshalIndent(job, "", "  ")
		if err == nil {
			fmt.Printf("\nJob summary: %s\n", out)
		}
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", runErr)
		return 1
	}
	return 0
}

// ideaFromArgs reads [topic] [durationSeconds]. A missing or non-positive
// duration means 60 seconds.
func ideaFromArgs(args []string) model.UserIdea {
	idea := model.UserIdea{
		Topic:           defaultTopic,
		DurationSeconds: model.DefaultDurationSeconds,
		BrandVoice:      model.DefaultBrandVoice,
	}
	if len(args) > 0 && args[0] != "" {
		idea.Topic = args[0]
	}
	if len(args) > 1 {
		if n, err := strconv.Atoi(args[1]); err == nil && n > 0 {
			idea.DurationSeconds = n
		}
	}
	return idea
}
