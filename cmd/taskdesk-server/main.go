package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kazz187/taskdesk/internal/config"
	"github.com/kazz187/taskdesk/internal/event"
	"github.com/kazz187/taskdesk/internal/identity"
	"github.com/kazz187/taskdesk/internal/notification"
	"github.com/kazz187/taskdesk/internal/pushnotification"
	pushsubrepo "github.com/kazz187/taskdesk/internal/pushsubscription/repositoryimpl"
	"github.com/kazz187/taskdesk/internal/ratelimit"
	"github.com/kazz187/taskdesk/internal/task"
	taskrepo "github.com/kazz187/taskdesk/internal/task/repositoryimpl"
	"github.com/kazz187/taskdesk/internal/user"
	userrepo "github.com/kazz187/taskdesk/internal/user/repositoryimpl"
	"github.com/kazz187/taskdesk/pkg/clog"
	"github.com/kazz187/taskdesk/pkg/storage"

	server "github.com/kazz187/taskdesk/internal"
)

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("failed to load env", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(clog.NewLogger(os.Stderr, env.IsLocal(), env.SlogLevel()))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	store, closeStore, err := storage.Open(ctx, env.StorageEnv.StorageConfig())
	if err != nil {
		slog.Error("failed to open storage", "type", env.StorageEnv.Type, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	// Setup repositories
	taskRepo := taskrepo.NewYAMLRepository(store)
	userRepo := userrepo.NewYAMLRepository(store)
	pushSubRepo := pushsubrepo.NewYAMLRepository(store)

	// Setup notification
	var mailer notification.Mailer = notification.LogMailer{}
	if env.MailEnv.Driver == "smtp" {
		mailer, err = notification.NewSMTPMailer(&env.MailEnv)
		if err != nil {
			slog.Error("failed to create smtp mailer", "error", err)
			os.Exit(1)
		}
	}
	templates, err := notification.NewTemplates(env.MailEnv.TemplateDir, env.MailEnv.AppBaseURL)
	if err != nil {
		slog.Error("failed to load mail templates", "dir", env.MailEnv.TemplateDir, "error", err)
		os.Exit(1)
	}
	if err := templates.Watch(ctx); err != nil {
		slog.Warn("mail template hot reload disabled", "error", err)
	}
	vapidEnv := config.VAPIDEnvFromEnv(env)
	pushSender := pushnotification.NewSender(vapidEnv, pushSubRepo)
	dispatcher := notification.NewDispatcher(mailer, templates, pushSender, env.NotifyConcurrency)

	// Setup servers
	validator := task.NewValidator()
	resolver := user.NewResolver(userRepo, env.DirectoryConcurrency)
	bus := event.NewBus()
	workflow := task.NewCreateWorkflow(taskRepo, resolver, dispatcher, validator, task.WithPublisher(bus))
	limiter := ratelimit.NewLimiter(ctx, &env.RedisEnv)
	defer limiter.Close()

	srv := server.NewServer(
		env,
		identity.NewVerifier(env.JWTSecret, env.JWTIssuer),
		limiter,
		task.NewServer(taskRepo, workflow, validator, bus),
		user.NewServer(userRepo),
		pushnotification.NewServer(vapidEnv, pushSubRepo, pushSender),
		event.NewServer(bus),
	)

	go func() {
		if err := srv.ListenAndServe(ctx); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
