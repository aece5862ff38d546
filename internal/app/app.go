package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Yoonyonggeun/mostarle-kr/cmd/migrate"
	"github.com/Yoonyonggeun/mostarle-kr/internal/auth"
	"github.com/Yoonyonggeun/mostarle-kr/internal/cache"
	"github.com/Yoonyonggeun/mostarle-kr/internal/catalog"
	"github.com/Yoonyonggeun/mostarle-kr/internal/cleanup"
	"github.com/Yoonyonggeun/mostarle-kr/internal/config"
	"github.com/Yoonyonggeun/mostarle-kr/internal/r2"
	"github.com/Yoonyonggeun/mostarle-kr/internal/reconcile"
	"github.com/Yoonyonggeun/mostarle-kr/internal/redisholder"
	"github.com/Yoonyonggeun/mostarle-kr/internal/repository/storage"
	"github.com/Yoonyonggeun/mostarle-kr/internal/transport/handler"
	"github.com/Yoonyonggeun/mostarle-kr/internal/transport/router"
)

type App struct {
	HttpServer *http.Server

	log *zap.SugaredLogger
}

func New(cfg *config.Config, log *zap.SugaredLogger) (*App, error) {
	ctx := context.Background()

	if err := migrate.Migrate(cfg.Database.DSN, migrate.Migrations); err != nil {
		return nil, err
	}

	repo, err := storage.New(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	holder, err := redisholder.Build(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	rc := holder.Get()

	assets, err := r2.NewStorage(&cfg.R2)
	if err != nil {
		return nil, err
	}
	if err := assets.Run(); err != nil {
		return nil, err
	}

	janitor := cleanup.Init(ctx, rc, cfg.Cleanup, assets, log)

	readCache := cache.NewCache("mostarle:catalog", time.Duration(cfg.Cache.TTLSeconds)*time.Second, rc)

	guard := auth.NewGuard(cfg.Auth.OperatorEmails)
	engine := reconcile.New(assets, janitor, log)

	svc := catalog.New(guard, repo, repo.Images(), repo.Details(), assets, engine, janitor, readCache, log)

	h := handler.New(svc, cfg)
	r := router.NewRouter(h)

	s := &http.Server{
		Handler:      r,
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &App{
		HttpServer: s,
		log:        log,
	}, nil
}

func (a *App) Run() error {
	a.log.Infow("starting server", "addr", a.HttpServer.Addr)
	return a.HttpServer.ListenAndServe()
}
