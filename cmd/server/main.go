// Package main starts the development stub backend for the DocsPortal
// client: a plain HTTP server with fixture content and HS256 token
// issuing, so the client can be developed without the real portal.
package main

import (
	"cmp"
	"fmt"
	"os"

	nethttp "net/http"

	"github.com/atinyakov/DocsPortal/internal/config"
	"github.com/atinyakov/DocsPortal/internal/logger"
	"github.com/atinyakov/DocsPortal/internal/server/handler/http"
	"github.com/atinyakov/DocsPortal/internal/service"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line and environment configuration.
	options := config.Parse()
	addr := options.Addr

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	zapLogger := log.Log

	// The signing secret is fixed for development; override via env.
	secret := cmp.Or(os.Getenv("PORTAL_JWT_SECRET"), "docsportal-dev-secret")

	// Initialize business-logic services.
	authService := service.NewAuthService(secret)
	docsService := service.NewDocsService()

	// Create HTTP handlers for auth and documentation endpoints.
	authHandler := &http.AuthHandler{AuthService: authService}
	docsHandler := &http.DocsHandler{DocsService: docsService}

	// Build the router with middleware and routes.
	router := http.NewRouter(authHandler, docsHandler, authService, zapLogger)

	zapLogger.Info("starting stub portal server", zap.String("addr", addr))
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		zapLogger.Fatal("failed to start server", zap.Error(err))
	}
}
