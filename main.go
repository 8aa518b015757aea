package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"portfolio-complete/assets"
	"portfolio-complete/core"
	"portfolio-complete/handlers/api/projects"
	"portfolio-complete/handlers/auth"
	authMiddleware "portfolio-complete/middleware"
	"portfolio-complete/stores"
)

func setupRouter(store core.CatalogStore, gate *auth.Gate, assetMgr *assets.Manager) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/auth/status", auth.HandleStatus(gate))
		r.Post("/login", auth.HandleLogin(gate))
		r.Post("/logout", auth.HandleLogout(gate))

		r.Get("/projects", projects.HandleList(store))
		r.Get("/projects/{id}", projects.HandleGet(store))

		// Mutations sit behind the session gate; reads do not.
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.RequireSession(gate))
			r.Post("/projects", projects.HandleCreate(store))
			r.Put("/projects/{id}", projects.HandleUpdate(store))
			r.Delete("/projects/{id}", projects.HandleDelete(store))
		})
	})

	r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(assetMgr.BasePath()))))
	r.NotFound(handleUI("./public"))

	return r
}

// handleUI serves the static frontend, falling back to index.html for
// client-side routes.
func handleUI(dir string) http.HandlerFunc {
	fileServer := http.FileServer(http.Dir(dir))
	return func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(dir, filepath.Clean("/"+r.URL.Path))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			fileServer.ServeHTTP(w, r)
			return
		}
		index := filepath.Join(dir, "index.html")
		if _, err := os.Stat(index); err == nil {
			http.ServeFile(w, r, index)
			return
		}
		http.NotFound(w, r)
	}
}

func sessionSecret() []byte {
	if secret := os.Getenv("SESSION_SECRET"); secret != "" {
		return []byte(secret)
	}
	// Sessions then survive only until restart.
	logrus.Warn("SESSION_SECRET is not set, generating an ephemeral one")
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		logrus.WithError(err).Fatal("Failed to generate session secret")
	}
	return []byte(hex.EncodeToString(buf))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found")
	}

	listenAddress := flag.String("listen", ":3001", "The address to listen on.")
	logLevel := flag.String("loglevel", "info", "The log level (debug, info, warn, error).")
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	assetMgr, err := assets.NewManager(envOr("UPLOADS_PATH", "./uploads"))
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize asset storage")
	}

	gate := auth.NewGate(
		envOr("ADMIN_USERNAME", "admin"),
		envOr("ADMIN_PASSWORD", "password"),
		sessionSecret(),
	)

	store := stores.GetStore(assetMgr)
	r := setupRouter(store, gate, assetMgr)

	srv := &http.Server{
		Addr:    *listenAddress,
		Handler: r,
	}

	logrus.WithField("addr", *listenAddress).Info("starting server")
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithField("event", "start server").Fatal(err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logrus.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("Server shutdown failed")
	}
}
