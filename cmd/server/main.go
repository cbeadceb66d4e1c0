package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/django/v3"
	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-router"
	mflash "github.com/goliatone/go-router/middleware/flash"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if cfg.Auth.SigningKey == "" {
		log.Fatal("config: auth.signing_key is required")
	}

	ctx := context.Background()

	bunDB, err := setupDatabase(ctx, cfg.Database.DSN)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer bunDB.Close()

	repo := accounts.NewRepositoryManager(bunDB)
	repo.MustValidate()

	manager := accounts.NewAccountManager(repo)
	issuer := accounts.NewSessionIssuer(cfg.Auth, repo.RevokedTokens())

	sessions, err := accounts.NewCookieSessions(manager, issuer, cfg.Auth)
	if err != nil {
		log.Fatalf("sessions: %v", err)
	}

	operatorOpts := []accounts.BulkOperatorOption{}
	guardOpts := []accounts.RevalidationGuardOption{}

	if cfg.Redis.Addr != "" {
		cache := accounts.NewRedisStatusCache(redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}))
		guardOpts = append(guardOpts, accounts.WithStatusCache(cache))
		operatorOpts = append(operatorOpts, accounts.WithBulkStatusCache(cache))
	}

	guard := accounts.NewRevalidationGuard(repo.Accounts(), issuer, cfg.Auth, guardOpts...)
	operator := accounts.NewBulkOperator(repo, operatorOpts...)

	engine := django.New(cfg.Server.ViewsDir, ".html")

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:      true,
			StrictRouting:     false,
			PassLocalsToViews: true,
			Views:             engine,
		}))
	})

	srv.Router().Use(mflash.New(mflash.ConfigDefault))
	srv.Router().Use(guard.Middleware())

	srv.Router().Static("/public", cfg.Server.PublicDir, router.Static{})

	srv.Router().Get("/", func(ctx router.Context) error {
		return ctx.Redirect("/admin", http.StatusFound)
	})

	accounts.RegisterAccountRoutes(srv.Router().Group("/"),
		accounts.WithAccountManager(manager),
		accounts.WithCookieSessions(sessions),
		accounts.WithAccountDebug(cfg.Server.Debug),
	)

	accounts.RegisterAdminRoutes(srv.Router().Group("/"), guard,
		accounts.WithAdminRepository(repo),
		accounts.WithBulkOperator(operator),
	)

	srv.Serve(cfg.Server.Address)

	WaitExitSignal()
}

// setupDatabase opens the sqlite store and ensures the schema exists
func setupDatabase(ctx context.Context, dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	if _, err := bunDB.NewCreateTable().
		Model((*accounts.Account)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return nil, err
	}

	if _, err := bunDB.NewCreateTable().
		Model((*accounts.RevokedToken)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return nil, err
	}

	return bunDB, nil
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
