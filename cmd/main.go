package main

import (
	"log"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/Yoonyonggeun/mostarle-kr/internal/app"
	"github.com/Yoonyonggeun/mostarle-kr/internal/config"
	"github.com/Yoonyonggeun/mostarle-kr/internal/logger"
)

const file = "config.json"

func initSentry(cfg *config.SentryConfig, version string) error {
	return sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.SentryDSN,
		Environment: cfg.Environment,
		Release:     version,
	})
}

func main() {
	cfg := config.NewConfig()
	err := cfg.Read(file)
	if err != nil {
		log.Fatal(err)
	}

	err = initSentry(&cfg.Sentry, "v1")
	if err != nil {
		log.Fatalf("sentry.Init: %s", err)
	}

	// Flush buffered events before the program terminates.
	defer sentry.Flush(2 * time.Second)

	l, err := logger.New(cfg.Sentry.Environment)
	if err != nil {
		log.Fatal(err)
	}
	defer l.Sync()

	app, err := app.New(cfg, l)
	if err != nil {
		l.Fatal(err)
	}

	if err := app.Run(); err != nil {
		l.Fatal(err)
	}
}
