package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/jon-lip/G2SMS-Public/internal/app"
	"github.com/jon-lip/G2SMS-Public/internal/config"
	"github.com/jon-lip/G2SMS-Public/internal/logger"
	"github.com/jon-lip/G2SMS-Public/internal/sync"
)

var GitCommit string

// HandleRequest runs one pass per invocation. It is meant to be triggered by
// a scheduled EventBridge rule, whose payload is ignored.
func HandleRequest(ctx context.Context) (sync.Report, error) {
	cfg, err := config.Load()
	if err != nil {
		return sync.Report{}, err
	}

	log, err := logger.Configure(cfg.Log.Level, false)
	if err != nil {
		return sync.Report{}, err
	}
	defer log.Sync()

	log.Infow("Starting pass", "version", GitCommit)

	if err := cfg.Validate(); err != nil {
		return sync.Report{}, err
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return sync.Report{}, err
	}
	defer a.Close()

	return a.RunPass(ctx)
}

func main() {
	lambda.Start(HandleRequest)
}
