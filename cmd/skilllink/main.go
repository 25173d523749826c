package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/skilllink/skilllink/internal/grading"
	"github.com/skilllink/skilllink/internal/handler"
	appI18n "github.com/skilllink/skilllink/internal/i18n"
	"github.com/skilllink/skilllink/internal/llm"
	"github.com/skilllink/skilllink/internal/llm/prompts"
	"github.com/skilllink/skilllink/internal/model"
	"github.com/skilllink/skilllink/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: reading .env: %v\n", err)
	}
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "skilllink",
		Short: "Tutoring platform API: evaluations, questions and schedules",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd(), importCmd(), takeCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func addLogFlags(cmd *cobra.Command) {
	cmd.Flags().String("log-level", "info", "Log level (debug, info, warn, error)")
	cmd.Flags().String("log-format", "text", "Log format (text, json)")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":3000", "HTTP listen address")
	f.String("db", "skilllink.db", "SQLite database path")
	f.String("jwt-secret", "", "HMAC secret for signing session tokens (or set SKILLLINK_JWT_SECRET)")
	f.Duration("session-ttl", 24*time.Hour, "How long a login stays valid")
	f.String("admin-password", "", "Initial admin password (or set SKILLLINK_ADMIN_PASSWORD)")
	f.StringP("lang", "l", "es", "Default response language (es, en)")
	f.StringSlice("cors-origins", []string{"*"}, "Allowed CORS origins")
	f.Bool("debug-routes", false, "Mount diagnostic routes")
	f.String("llm-url", "", "OpenAI-compatible API base URL; empty leaves written answers for manual grading")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.String("prompt-variant", string(prompts.PromptStandard), "Grading prompt variant (strict, standard, lenient)")
	f.Int("grading-workers", 4, "Concurrent LLM grading calls per submission")
	addLogFlags(cmd)
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: logLevel}
	var h slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		h = slog.NewJSONHandler(os.Stderr, opts)
	default:
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
}

// viperForCmd binds a command's flags, SKILLLINK_* variables and the optional
// config file to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("SKILLLINK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("skilllink")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/skilllink")
	v.AddConfigPath("/etc/skilllink")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}
	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	secret := v.GetString("jwt-secret")
	if secret == "" {
		return errors.New("jwt secret is required: set --jwt-secret or SKILLLINK_JWT_SECRET")
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := seedAdmin(db, v.GetString("admin-password")); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workers := v.GetInt("grading-workers")
	grader, err := newGrader(ctx, v, lang, workers)
	if err != nil {
		return err
	}

	cfg := model.ServerConfig{
		JWTSecret:      []byte(secret),
		SessionTTL:     v.GetDuration("session-ttl"),
		DefaultLang:    lang,
		CORSOrigins:    v.GetStringSlice("cors-origins"),
		DebugRoutes:    v.GetBool("debug-routes"),
		GradingWorkers: workers,
	}
	h, err := handler.New(db, grader, cfg)
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	go cleanupSessions(ctx, db, time.Hour)

	srv := &http.Server{
		Addr:              v.GetString("addr"),
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	slog.Info("starting server",
		"addr", srv.Addr,
		"lang", lang,
		"session_ttl", cfg.SessionTTL,
		"debug_routes", cfg.DebugRoutes,
		"llm_url", v.GetString("llm-url"),
		"grading_workers", workers,
	)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newGrader wires the LLM grader when an endpoint is configured. Without one,
// written answers stay pending for manual grading.
func newGrader(ctx context.Context, v *viper.Viper, lang string, workers int) (*grading.Grader, error) {
	url := v.GetString("llm-url")
	if url == "" {
		slog.Info("no LLM configured, written answers will be graded by hand")
		return grading.New(nil, workers), nil
	}

	variant := strings.ToLower(strings.TrimSpace(v.GetString("prompt-variant")))
	if !prompts.IsValidVariant(variant) {
		slog.Warn("invalid prompt-variant, using standard", "variant", variant)
		variant = string(prompts.PromptStandard)
	}
	client, err := llm.New(url, v.GetString("llm-key"), v.GetString("llm-model"), variant, lang)
	if err != nil {
		return nil, fmt.Errorf("create LLM client: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("LLM health check: %w", err)
	}
	slog.Info("LLM endpoint OK", "url", url, "model", v.GetString("llm-model"), "variant", variant)
	return grading.New(client, workers), nil
}

func cleanupSessions(ctx context.Context, db *store.Store, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := db.CleanupExpiredSessions()
			if err != nil {
				slog.Error("failed to clean up sessions", "error", err)
				continue
			}
			if n > 0 {
				slog.Debug("removed expired sessions", "count", n)
			}
		}
	}
}

func seedAdmin(db *store.Store, password string) error {
	count, err := db.UserCount()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if password == "" {
		return errors.New("admin password is required: set --admin-password flag or SKILLLINK_ADMIN_PASSWORD env var")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	_, err = db.CreateUser(model.User{
		Username:     "admin",
		PasswordHash: string(hash),
		RoleID:       model.RoleAdmin,
		Active:       true,
	})
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	slog.Info("seeded default admin user", "username", "admin")
	return nil
}
