package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/jon-lip/G2SMS-Public/internal/app"
	"github.com/jon-lip/G2SMS-Public/internal/config"
	"github.com/jon-lip/G2SMS-Public/internal/logger"
	"github.com/jon-lip/G2SMS-Public/internal/mail/gmail"
	"github.com/jon-lip/G2SMS-Public/internal/rules"
	"github.com/jon-lip/G2SMS-Public/internal/scheduler"
)

var GitCommit string

const shutdownTimeout = 30 * time.Second

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "g2sms",
		Usage:   "forward summaries of important emails by SMS",
		Version: GitCommit,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env-file",
				Value: ".env",
				Usage: "dotenv file loaded before the environment",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "once",
				Usage: "run a single pass and exit",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "dry-run", Usage: "log the SMS instead of sending it and leave messages unmarked"},
				},
				Action: runOnce,
			},
			{
				Name:   "serve",
				Usage:  "run passes on a schedule and expose metrics",
				Action: runServe,
			},
			{
				Name:   "authorize",
				Usage:  "obtain a Gmail refresh token",
				Action: runAuthorize,
			},
			{
				Name:      "classify",
				Usage:     "classify a single message against the rules file",
				ArgsUsage: " ",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "from", Required: true},
					&cli.StringFlag{Name: "subject"},
					&cli.StringFlag{Name: "content"},
					&cli.StringFlag{Name: "content-file", Usage: "read the content from a file, - for stdin"},
				},
				Action: runClassify,
			},
		},
	}
}

func loadConfig(c *cli.Context) (*config.Config, logger.Logger, error) {
	cfg, err := config.Load(c.String("env-file"))
	if err != nil {
		return nil, logger.Logger{}, err
	}

	log, err := logger.Configure(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, logger.Logger{}, err
	}

	return cfg, log, nil
}

func runOnce(c *cli.Context) error {
	cfg, log, err := loadConfig(c)
	if err != nil {
		return err
	}
	defer log.Sync()

	if c.Bool("dry-run") {
		cfg.DryRun = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.RunPass(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "fetched=%d accepted=%d blacklisted=%d notified=%d failed=%d skipped=%d\n",
		report.Fetched, report.Accepted, report.Blacklisted, report.Notified, report.Failed, report.Skipped)
	return nil
}

func runServe(c *cli.Context) error {
	cfg, log, err := loadConfig(c)
	if err != nil {
		return err
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	pass := func(ctx context.Context) {
		if _, err := a.RunPass(ctx); err != nil {
			log.Errorw("Pass failed", "error", err)
		}
	}

	sched, err := scheduler.New(cfg.Serve.Schedule, pass)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Serve.MetricsAddr,
		Handler:           app.NewRouter(a),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infow("Serving metrics", "addr", cfg.Serve.MetricsAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorw("Metrics server stopped", "error", err)
			stop()
		}
	}()

	pass(ctx)
	sched.Start()
	log.Infow("Scheduler started",
		"schedule", cfg.Serve.Schedule,
		"version", GitCommit,
	)

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := sched.Stop(shutdownCtx); err != nil {
		log.Errorw("Scheduler did not stop cleanly", "error", err)
	}
	return srv.Shutdown(shutdownCtx)
}

func runAuthorize(c *cli.Context) error {
	cfg, log, err := loadConfig(c)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.Gmail.ClientID == "" || cfg.Gmail.ClientSecret == "" {
		return fmt.Errorf("%w: GMAIL_CLIENT_ID/GMAIL_CLIENT_SECRET", config.ErrMissingCredentials)
	}

	oauthCfg := gmail.OAuthConfig(gmail.Config{
		ClientID:     cfg.Gmail.ClientID,
		ClientSecret: cfg.Gmail.ClientSecret,
		RedirectURI:  cfg.Gmail.RedirectURI,
	})

	tok, err := gmail.Authorize(c.Context, oauthCfg, c.App.Reader, c.App.Writer)
	if err != nil {
		return err
	}

	if cfg.Gmail.TokenFile != "" {
		if err := gmail.SaveToken(cfg.Gmail.TokenFile, tok); err != nil {
			return err
		}
		log.Infow("Saved token", "file", cfg.Gmail.TokenFile)
	}

	fmt.Fprintf(c.App.Writer, "GMAIL_REFRESH_TOKEN=%s\n", tok.RefreshToken)
	return nil
}

func runClassify(c *cli.Context) error {
	cfg, err := config.Load(c.String("env-file"))
	if err != nil {
		return err
	}

	rs, err := rules.LoadFile(cfg.RulesFile)
	if err != nil {
		return err
	}

	text := c.String("content")
	switch f := c.String("content-file"); f {
	case "":
	case "-":
		b, err := io.ReadAll(c.App.Reader)
		if err != nil {
			return err
		}
		text = string(b)
	default:
		b, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		text = string(b)
	}

	res := rules.Classify(c.String("from"), c.String("subject"), text, rs)
	fmt.Fprintln(c.App.Writer, res.String())
	if res.Accepted {
		fmt.Fprintf(c.App.Writer, "matched: %s\n", joinCriteria(res.Matched))
	}
	return nil
}

func joinCriteria(cs []rules.Criterion) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = string(c)
	}
	return strings.Join(parts, ", ")
}
