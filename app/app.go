package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lemurforge/lemur/activitypub"
	"github.com/lemurforge/lemur/db"
	"github.com/lemurforge/lemur/util"
	"github.com/lemurforge/lemur/web"
)

// App represents the main application with its server and dependencies
type App struct {
	config       *util.AppConfig
	httpServer   *http.Server
	workerCancel context.CancelFunc
	done         chan os.Signal
}

// New creates a new App instance with the given configuration
func New(conf *util.AppConfig) (*App, error) {
	return &App{
		config: conf,
		done:   make(chan os.Signal, 1),
	}, nil
}

// Initialize sets up the database, runs migrations, and builds the server
func (a *App) Initialize() error {
	// Opening the database runs the schema migrations
	log.Println("Running database migrations...")
	db.GetDB()
	log.Println("Database migrations complete")

	router := web.NewRouter(a.config)

	a.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", a.config.Conf.Host, a.config.Conf.HttpPort),
		Handler: router,
	}

	return nil
}

// Start starts the server and blocks until a shutdown signal is received
func (a *App) Start() error {
	// Start the delivery worker if federation is enabled
	if a.config.Conf.WithFederation {
		ctx, cancel := context.WithCancel(context.Background())
		a.workerCancel = cancel
		go activitypub.StartDeliveryWorker(ctx,
			activitypub.NewDBWrapper(),
			activitypub.NewDefaultHTTPClient(30*time.Second))
	}

	// Setup signal handling
	signal.Notify(a.done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	log.Printf("Starting HTTP server on %s:%d", a.config.Conf.Host, a.config.Conf.HttpPort)
	go func() {
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-a.done
	log.Println("Shutdown signal received")

	return a.Shutdown()
}

// Shutdown gracefully stops the server with a 30 second timeout
func (a *App) Shutdown() error {
	log.Println("Initiating graceful shutdown...")

	if a.workerCancel != nil {
		a.workerCancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	log.Println("Stopping HTTP server...")
	if err := a.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		return err
	}
	log.Println("HTTP server stopped gracefully")

	return nil
}
