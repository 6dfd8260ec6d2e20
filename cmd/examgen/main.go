package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"examgen-server/internal/generate"
	"examgen-server/internal/handler"
	"examgen-server/internal/llm"
	"examgen-server/internal/model"
	"examgen-server/internal/rag"
	"examgen-server/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "examgen",
		Short: "Exam question generation platform powered by LLMs",
	}

	serve := serveCmd()
	root.AddCommand(serve, seedCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `examgen --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "examgen.db", "SQLite database path")
	f.String("cache-dir", "generation_cache", "Directory for cached generation results")
	f.String("local-url", "http://localhost:11434/v1", "OpenAI-compatible local API base URL")
	f.String("local-key", "ollama", "API key for the local endpoint")
	f.String("local-model", "llama3.2", "Local model name")
	f.String("openai-key", "", "OpenAI API key (or set EXAMGEN_OPENAI_KEY)")
	f.String("openai-url", "", "OpenAI API base URL override")
	f.String("openai-model", "gpt-4o-mini", "OpenAI model name")
	f.String("gemini-key", "", "Gemini API key (or set EXAMGEN_GEMINI_KEY)")
	f.String("gemini-model", "gemini-2.0-flash", "Gemini model name")
	f.Duration("gen-timeout", 10*time.Minute, "Per-call generation timeout")
	f.IntP("workers", "w", 5, "Concurrent generation workers")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.String("admin-password", "", "Initial admin password (or set EXAMGEN_ADMIN_PASSWORD)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import subjects and topics from a JSON file",
		RunE:  runSeed,
	}
	f := cmd.Flags()
	f.String("db", "examgen.db", "SQLite database path")
	f.StringP("file", "f", "subjects.json", "Path to the subjects JSON file")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
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
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("EXAMGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("examgen")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/examgen")
	v.AddConfigPath("/etc/examgen")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := context.Background()

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := seedAdmin(db, v.GetString("admin-password")); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if err := db.CleanupExpiredSessions(); err != nil {
		slog.Warn("session cleanup failed", "error", err)
	}

	selector := llm.NewSelector(ctx, llm.Config{
		LocalBaseURL:   v.GetString("local-url"),
		LocalAPIKey:    v.GetString("local-key"),
		LocalModel:     v.GetString("local-model"),
		OpenAIKey:      v.GetString("openai-key"),
		OpenAIBaseURL:  v.GetString("openai-url"),
		OpenAIModel:    v.GetString("openai-model"),
		GeminiKey:      v.GetString("gemini-key"),
		GeminiModel:    v.GetString("gemini-model"),
		RequestTimeout: v.GetDuration("gen-timeout"),
	})

	cache, err := generate.NewCache(v.GetString("cache-dir"))
	if err != nil {
		return fmt.Errorf("create cache: %w", err)
	}

	ragProvider := rag.New(db)
	svc := generate.NewService(db, selector, cache, ragProvider, v.GetInt("workers"))

	h := handler.New(db, svc, selector, ragProvider, handler.Config{
		SecureCookies: v.GetBool("secure-cookies"),
	})

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"local_url", v.GetString("local-url"),
		"local_model", v.GetString("local-model"),
		"cloud_provider", selector.CloudName(),
		"workers", v.GetInt("workers"),
	)
	return http.ListenAndServe(addr, r)
}

// seedSubject is one entry in the subjects JSON file.
type seedSubject struct {
	Code         string   `json:"code"`
	Name         string   `json:"name"`
	Color        string   `json:"color"`
	Gradient     string   `json:"gradient"`
	Introduction string   `json:"introduction"`
	Topics       []string `json:"topics"`
}

func runSeed(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	path := v.GetString("file")
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	hash := sha256sum(data)
	storedHash, err := db.GetImportedFileHash(path)
	if err != nil {
		return fmt.Errorf("check import status for %s: %w", path, err)
	}
	if storedHash == hash {
		slog.Info("subjects file unchanged, skipping", "path", path)
		return nil
	}
	if storedHash != "" {
		slog.Warn("subjects file changed since last import, skipping to avoid duplicates", "path", path)
		return nil
	}

	var subjects []seedSubject
	if err := json.Unmarshal(data, &subjects); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	for _, ss := range subjects {
		if ss.Code == "" || ss.Name == "" {
			return fmt.Errorf("subject entries need code and name: %+v", ss)
		}
		subjectID, err := db.CreateSubject(model.Subject{
			Code:         ss.Code,
			Name:         ss.Name,
			Color:        ss.Color,
			Gradient:     ss.Gradient,
			Introduction: ss.Introduction,
		})
		if err != nil {
			return fmt.Errorf("insert subject %s: %w", ss.Code, err)
		}
		for _, topic := range ss.Topics {
			if _, err := db.CreateTopic(model.Topic{SubjectID: subjectID, Name: topic}); err != nil {
				return fmt.Errorf("insert topic %s for %s: %w", topic, ss.Code, err)
			}
		}
		slog.Info("imported subject", "code", ss.Code, "topics", len(ss.Topics))
	}

	if err := db.SetImportedFileHash(path, hash); err != nil {
		return fmt.Errorf("record import for %s: %w", path, err)
	}
	slog.Info("seed complete", "path", path, "subjects", len(subjects))
	return nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
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
		return fmt.Errorf("admin password is required: set --admin-password flag or EXAMGEN_ADMIN_PASSWORD env var")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	_, err = db.CreateUser(model.User{
		Username:     "admin",
		DisplayName:  "Administrator",
		PasswordHash: string(hash),
		Role:         model.UserRoleAdmin,
		Active:       true,
	})
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	slog.Info("seeded default admin user", "username", "admin")
	return nil
}
