// Package server assembles the pod services into an HTTP server.
package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/joeblew999/plat-pod/internal/api"
	"github.com/joeblew999/plat-pod/internal/db"
	"github.com/joeblew999/plat-pod/internal/humastar"
	"github.com/joeblew999/plat-pod/internal/service"
	"github.com/joeblew999/plat-pod/internal/templates"
	"github.com/joeblew999/plat-pod/internal/units"
	"github.com/joeblew999/plat-pod/internal/validate"
)

// Config holds the server configuration.
type Config struct {
	Host        string
	Port        string
	DataDir     string
	CatalogPath string
	// StrictUnits rejects unknown unit conversions instead of falling back
	// to the legacy pass-through.
	StrictUnits bool
	// FieldChecks overrides the catalog's isDataFieldChecks setting.
	FieldChecks *bool
	// FieldCheckRPS limits extent layer field list requests.
	FieldCheckRPS float64
	Logger        *slog.Logger
}

// Server is the pod HTTP server.
type Server struct {
	config   Config
	log      *slog.Logger
	mux      *http.ServeMux
	humaAPI  huma.API
	db       *sql.DB
	metrics  *service.Metrics
	services *api.Services
}

// New creates the server and loads the configured catalog. A missing
// catalog file leaves the server running without one; a catalog with
// fatal errors is refused.
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.FieldCheckRPS <= 0 {
		cfg.FieldCheckRPS = 5
	}
	log := cfg.Logger
	mux := http.NewServeMux()
	links := humastar.NewLinks("/health", "events")
	humaAPI := newAPI(cfg, mux, links)

	s := &Server{
		config:  cfg,
		log:     log,
		mux:     mux,
		humaAPI: humaAPI,
		metrics: service.NewMetrics(),
	}

	var history *db.History
	conn, err := db.Get(db.Config{DataDir: cfg.DataDir, DBName: "pod"})
	if err != nil {
		log.Warn("history database unavailable", "err", err)
	} else {
		s.db = conn
		if history, err = db.NewHistory(context.Background(), conn); err != nil {
			log.Warn("history tables unavailable", "err", err)
			history = nil
		}
	}

	bus := service.NewEventBus()
	conv := units.Converter{Legacy: !cfg.StrictUnits, Logger: log}
	catalogs := service.NewCatalogService(service.CatalogConfig{
		Path:      cfg.CatalogPath,
		Converter: conv,
		Validator: &validate.Validator{
			Lister:      validate.NewHTTPFieldLister(&http.Client{Timeout: 30 * time.Second}, cfg.FieldCheckRPS, 10*time.Minute),
			FieldChecks: cfg.FieldChecks,
			Logger:      log,
		},
		Bus:     bus,
		Metrics: s.metrics,
		History: history,
		Logger:  log,
	})
	if rep, err := catalogs.Load(context.Background()); err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			log.Warn("no product catalog", "path", cfg.CatalogPath)
		case errors.Is(err, service.ErrCatalogInvalid):
			return nil, fmt.Errorf("%s: %w\n%s", cfg.CatalogPath, err, rep)
		default:
			return nil, fmt.Errorf("load catalog: %w", err)
		}
	}

	s.services = &api.Services{
		Catalogs: catalogs,
		Queue: service.NewQueueService(service.QueueConfig{
			DataDir:  cfg.DataDir,
			Catalogs: catalogs,
			Bus:      bus,
			Metrics:  s.metrics,
			History:  history,
			Logger:   log,
		}),
		Converter: conv,
	}

	if err := register(humaAPI, cfg, s.services, s.db, history, bus); err != nil {
		return nil, err
	}
	links.Discover(humaAPI)

	mux.Handle("/metrics", s.metrics.Handler())
	mux.HandleFunc("/", s.handleRoot)
	return s, nil
}

// Describe returns the API description without loading a catalog or
// opening the database.
func Describe(cfg Config) (*huma.OpenAPI, error) {
	humaAPI := newAPI(cfg, http.NewServeMux(), humastar.NewLinks("/health", "events"))
	if err := register(humaAPI, cfg, &api.Services{}, nil, nil, service.NewEventBus()); err != nil {
		return nil, err
	}
	return humaAPI.OpenAPI(), nil
}

func newAPI(cfg Config, mux *http.ServeMux, links *humastar.Links) huma.API {
	humaConfig := huma.DefaultConfig("plat-pod API", api.Version)
	humaConfig.Info.Description = "Product on Demand API: page layout for map products, product catalog validation and the export queue."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, links.Transformer())
	return humago.New(mux, humaConfig)
}

func register(humaAPI huma.API, cfg Config, svc *api.Services, conn *sql.DB, history *db.History, bus *service.EventBus) error {
	renderer, err := templates.New()
	if err != nil {
		return fmt.Errorf("fragment templates: %w", err)
	}
	huma.AutoRegister(humaAPI, api.NewAPIHandler(svc))
	huma.AutoRegister(humaAPI, api.NewInfoHandler(cfg.DataDir, cfg.CatalogPath, conn != nil, svc))
	huma.AutoRegister(humaAPI, api.NewDBHandler(conn, history))
	huma.AutoRegister(humaAPI, api.NewEventHandler(bus, svc, renderer))
	return nil
}

// OpenAPI returns the API description.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Services returns the services behind the API.
func (s *Server) Services() *api.Services {
	return s.services
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Close closes server resources.
func (s *Server) Close() error {
	return db.Close()
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Add("Link", `</health>; rel="service-meta"`)
	w.Header().Add("Link", `</openapi.json>; rel="service-desc"`)
	json.NewEncoder(w).Encode(map[string]string{
		"service": "plat-pod",
		"status":  "running",
	})
}
