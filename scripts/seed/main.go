package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/voicebot/voicebot/internal/app"
	"github.com/voicebot/voicebot/internal/auth"
	"github.com/voicebot/voicebot/internal/platform/cache"
	"github.com/voicebot/voicebot/internal/platform/db"
	"github.com/voicebot/voicebot/internal/shared"
)

// Seeds a demo account so a fresh deployment can be signed into at once.
func main() {
	ctx := context.Background()
	cfg, err := app.LoadConfig()
	if err != nil {
		fail("load config", err)
	}
	logger := app.NewLogger(cfg)

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		fail("connect redis", err)
	}
	defer redisClient.Close()

	var repo auth.Repository = auth.NewRedisRepository(redisClient)
	if cfg.AccountStore == app.AccountStorePostgres {
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			fail("connect postgres", err)
		}
		defer pool.Close()
		if err := db.Migrate(ctx, pool); err != nil {
			fail("migrate", err)
		}
		repo = auth.NewRepository(pool)
	}

	in := auth.RegisterInput{
		Name:            getenv("SEED_NAME", "Demo User"),
		Email:           getenv("SEED_EMAIL", "demo@voicebot.local"),
		Password:        getenv("SEED_PASSWORD", "demo1234"),
		ConfirmPassword: getenv("SEED_PASSWORD", "demo1234"),
	}
	acct, err := auth.NewService(repo).Register(ctx, nil, in)
	switch {
	case errors.Is(err, shared.ErrDuplicateEmail):
		logger.Info("demo account already present", slog.String("email", in.Email))
	case err != nil:
		fail("seed account", err)
	default:
		logger.Info("demo account created", slog.String("email", acct.Email), slog.String("account_id", acct.ID))
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fail(step string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", step, err)
	os.Exit(1)
}
