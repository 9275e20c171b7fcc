package web

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/WenkChr/NGD-AGOL-Download/internal/web/handlers"
	"github.com/WenkChr/NGD-AGOL-Download/internal/web/middleware"
)

// Server represents the QC review server over a run's output directory
type Server struct {
	config     *Config
	httpServer *http.Server
	router     *mux.Router
	handler    http.Handler
}

// NewServer creates a new web server instance
func NewServer(config *Config) (*Server, error) {
	info, err := os.Stat(config.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open output directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("output path %s is not a directory", config.OutputDir)
	}

	server := &Server{config: config}
	server.setupRoutes()

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port),
		Handler:      server.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server, nil
}

// Handler returns the routed handler behind the CORS layer
func (s *Server) Handler() http.Handler {
	return s.handler
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()

	handlerConfig := &handlers.Config{
		OutputDir: s.config.OutputDir,
		UIDField:  s.config.UIDField,
		Files:     s.config.Files,
	}
	apiHandler := &handlers.APIHandler{Config: handlerConfig, Started: time.Now()}
	mapsHandler := &handlers.MapsHandler{Config: handlerConfig}
	exportHandler := &handlers.ExportHandler{Config: handlerConfig}

	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", apiHandler.Health).Methods("GET")
	api.HandleFunc("/report", apiHandler.GetReport).Methods("GET")
	api.HandleFunc("/records/{id:[0-9]+}", apiHandler.GetRecord).Methods("GET")

	api.HandleFunc("/geometry", mapsHandler.GetGeometry).Methods("GET")
	api.HandleFunc("/overlaps", mapsHandler.GetOverlaps).Methods("GET")

	api.HandleFunc("/statements", exportHandler.GetStatements).Methods("GET")
	api.HandleFunc("/package", exportHandler.DownloadPackage).Methods("GET")

	s.router.Use(middleware.RequestLogging())

	if s.config.Auth.Enabled {
		api.Use(middleware.Authentication(s.config.Auth.APIKey))
	}

	// preflight requests match no route, so CORS wraps the router
	s.handler = cors.Handler(cors.Options{
		AllowedOrigins:   s.config.Server.CORS.AllowOrigins,
		AllowedMethods:   s.config.Server.CORS.AllowMethods,
		AllowedHeaders:   s.config.Server.CORS.AllowHeaders,
		ExposedHeaders:   []string{"Content-Disposition", "X-Statement-Count"},
		AllowCredentials: false,
		MaxAge:           600,
	})(s.router)
}

// Start runs the server until SIGINT or SIGTERM
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting review server on http://%s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-stop:
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
