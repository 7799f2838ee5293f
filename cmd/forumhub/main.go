package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"forumhub/internal/app"
	"forumhub/internal/config"
	"forumhub/internal/server"
	"forumhub/internal/util"
	"forumhub/pkg/auth"
	"forumhub/pkg/store"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	util.InitLogger(cfg.LogLevel)

	st, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}

	hasher := auth.NewBcryptHasher()
	if err := app.EnsureSeedData(st, hasher, app.SeedData{
		AdminName:     cfg.SeedAdminName,
		AdminEmail:    cfg.SeedAdminEmail,
		AdminPassword: cfg.SeedAdminPassword,
		Courses:       cfg.Courses,
	}); err != nil {
		log.Fatalf("failed to seed data: %v", err)
	}

	tokens := app.NewTokenService(cfg.TokenSecret)
	authSvc := app.NewAuthService(st, hasher, tokens)
	userSvc := app.NewUserService(st, hasher)
	topicSvc := app.NewTopicService(st, userSvc)
	answerSvc := app.NewAnswerService(st, userSvc, topicSvc)

	httpServer := server.New(server.Config{
		Auth:    authSvc,
		Users:   userSvc,
		Topics:  topicSvc,
		Answers: answerSvc,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("forum server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
