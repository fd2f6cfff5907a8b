package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"

	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/internal/auth"
	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/internal/book"
	bookrepo "github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/internal/book/repo"
	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/internal/message"
	messagerepo "github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/internal/message/repo"
	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/internal/ratelimit"
	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/internal/router"
	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/internal/user"
	userrepo "github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/pkg/database"
	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/pkg/utilities"
)

func main() {
	// best-effort: without a .env file the real environment is used
	_ = godotenv.Load()

	logCfg, err := utilities.ConfigFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	lg, err := utilities.Init(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting service-bookpost")

	authCfg, err := auth.ConfigFromEnv()
	if err != nil {
		sugar.Fatalf("auth config: %v", err)
	}
	tokens, err := auth.NewTokenService(authCfg)
	if err != nil {
		sugar.Fatalf("token service: %v", err)
	}
	if authCfg.TTL == 0 {
		sugar.Warn("TOKEN_TTL is 0; issued tokens never expire")
	}

	dbCfg, err := database.ConfigFromEnv()
	if err != nil {
		sugar.Fatalf("database config: %v", err)
	}
	if dbCfg.Migrate {
		applied, err := database.Migrate(dbCfg.DSN)
		if err != nil {
			sugar.Fatalf("db migrate: %v", err)
		}
		sugar.Infow("schema migrations checked", "applied", applied)
	}
	sqlDB, err := database.Connect(dbCfg)
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	sqlxDB := sqlx.NewDb(sqlDB, "postgres")
	defer sqlxDB.Close()

	node, err := utilities.NewSnowflakeNode(logCfg.SnowflakeNode)
	if err != nil {
		sugar.Fatalf("snowflake node: %v", err)
	}

	rlCfg, err := ratelimit.ConfigFromEnv()
	if err != nil {
		sugar.Fatalf("rate limit config: %v", err)
	}
	var limiter *ratelimit.FixedWindowLimiter
	if rlCfg.RedisAddr != "" {
		limiter, err = ratelimit.NewFixedWindowLimiter(rlCfg.RedisAddr, rlCfg.RedisPassword, "", rlCfg.LoginPerMinute, time.Minute)
		if err != nil {
			sugar.Fatalf("rate limiter: %v", err)
		}
		defer limiter.Close()
		sugar.Infow("login rate limit enabled", "per_minute", rlCfg.LoginPerMinute)
	}

	users := user.NewUserService(userrepo.NewUserRepo(sqlxDB), user.BcryptHasher{Cost: 12}, sugar)
	handler := router.RegisterRoutes(sugar, router.Deps{
		Books:        book.NewService(bookrepo.NewBookRepo(sqlxDB)),
		Users:        users,
		Messages:     message.NewService(messagerepo.NewMessageRepo(sqlxDB), node),
		Tokens:       tokens,
		LoginLimiter: limiter,
	})

	srvCfg, err := serverConfigFromEnv()
	if err != nil {
		sugar.Fatalf("server config: %v", err)
	}
	srv := &http.Server{
		Addr:              srvCfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: srvCfg.ReadHeaderTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()
	sugar.Infow("listening", "addr", srvCfg.Addr)

	<-ctx.Done()

	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), srvCfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}
