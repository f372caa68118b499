package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joeblew999/plat-pod/internal/catalog"
	"github.com/joeblew999/plat-pod/internal/db"
	"github.com/joeblew999/plat-pod/internal/product"
	"github.com/joeblew999/plat-pod/internal/units"
	"github.com/joeblew999/plat-pod/internal/validate"
)

// ErrNoCatalog is returned when no valid catalog has been loaded.
var ErrNoCatalog = errors.New("no product catalog loaded")

// ErrCatalogInvalid is returned when a catalog has fatal validation errors.
var ErrCatalogInvalid = errors.New("product catalog has fatal errors")

// fieldCheckTimeout bounds the background field checks of one run.
const fieldCheckTimeout = 2 * time.Minute

// Report is the outcome of one validation run. FieldChecksDone is false
// while remote field checks are still reporting.
type Report struct {
	ID              string           `json:"id" doc:"Validation run ID"`
	Source          string           `json:"source" doc:"Catalog file or request the run checked"`
	Valid           bool             `json:"valid" doc:"No fatal errors were found"`
	Errors          []validate.Error `json:"errors" doc:"Distinct problems, in the order found"`
	Fatal           int              `json:"fatal"`
	Warnings        int              `json:"warnings"`
	FieldRequests   int              `json:"fieldRequests" doc:"Extent layer field lists requested"`
	FieldChecksDone bool             `json:"fieldChecksDone"`
	StartedAt       time.Time        `json:"startedAt"`
}

// CatalogConfig configures a CatalogService.
type CatalogConfig struct {
	// Path of the catalog file Load reads.
	Path      string
	Converter units.Converter
	Validator *validate.Validator
	Bus       *EventBus
	Metrics   *Metrics
	// History, when set, records every validation run.
	History *db.History
	Logger  *slog.Logger
}

// CatalogService owns the product catalog in use and validates catalogs.
type CatalogService struct {
	cfg CatalogConfig
	log *slog.Logger

	mu      sync.RWMutex
	catalog *catalog.Catalog
	factory *product.Factory
	last    *Report
}

// NewCatalogService creates a catalog service. Nothing is loaded until
// Load or Install is called.
func NewCatalogService(cfg CatalogConfig) *CatalogService {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Validator == nil {
		cfg.Validator = &validate.Validator{Logger: cfg.Logger}
	}
	return &CatalogService{cfg: cfg, log: cfg.Logger}
}

// Load reads, validates and installs the configured catalog file. Remote
// field checks are not waited for. A catalog with fatal errors is not
// installed; the report is returned with ErrCatalogInvalid.
func (s *CatalogService) Load(ctx context.Context) (Report, error) {
	c, err := catalog.Load(s.cfg.Path)
	if err != nil {
		return Report{}, err
	}
	rep := s.run(ctx, s.cfg.Path, c, 0)
	if !rep.Valid {
		return rep, ErrCatalogInvalid
	}
	s.Install(c)
	s.log.Info("catalog loaded", "path", s.cfg.Path, "products", len(c.ProductDefinitions()), "warnings", rep.Warnings)
	return rep, nil
}

// Install makes c the catalog products are created from, without
// validating it.
func (s *CatalogService) Install(c *catalog.Catalog) {
	f := product.NewFactory(c, s.cfg.Converter, s.log)
	s.mu.Lock()
	s.catalog, s.factory = c, f
	s.mu.Unlock()
	s.cfg.Bus.Publish(Event{Resource: ResourceCatalog, Action: ActionUpdated})
}

// Validate checks a catalog document without installing it. It waits up
// to wait for remote field checks; checks still running after that keep
// reporting into the stored report and onto the event bus.
func (s *CatalogService) Validate(ctx context.Context, source string, data []byte, wait time.Duration) (Report, error) {
	c, err := catalog.Parse(data)
	if err != nil {
		return Report{}, err
	}
	return s.run(ctx, source, c, wait), nil
}

// Catalog returns the installed catalog.
func (s *CatalogService) Catalog() (*catalog.Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.catalog == nil {
		return nil, ErrNoCatalog
	}
	return s.catalog, nil
}

// Factory returns the product factory of the installed catalog.
func (s *CatalogService) Factory() (*product.Factory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.factory == nil {
		return nil, ErrNoCatalog
	}
	return s.factory, nil
}

// Templates returns the products of the installed catalog.
func (s *CatalogService) Templates() ([]product.Template, error) {
	f, err := s.Factory()
	if err != nil {
		return nil, err
	}
	return f.Templates()
}

// Domain returns a domain of the installed catalog.
func (s *CatalogService) Domain(name string) (catalog.Domain, error) {
	c, err := s.Catalog()
	if err != nil {
		return catalog.Domain{}, err
	}
	d, ok := c.Domain(name)
	if !ok {
		return catalog.Domain{}, &catalog.NotDefinedError{What: "table", Name: name}
	}
	return d, nil
}

// LastReport returns the report of the most recent validation run.
func (s *CatalogService) LastReport() (Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return Report{}, false
	}
	return *s.last, true
}

type validationRun struct {
	report Report
	sess   *validate.Session
	fc     *validate.FieldCheck
}

func (r *validationRun) snapshot() Report {
	rep := r.report
	rep.Errors = r.sess.Errors()
	rep.Fatal, rep.Warnings = 0, 0
	for _, e := range rep.Errors {
		if e.Severity == validate.Fatal {
			rep.Fatal++
		} else {
			rep.Warnings++
		}
	}
	rep.Valid = rep.Fatal == 0
	rep.FieldRequests = r.fc.Requests()
	select {
	case <-r.fc.Done():
		rep.FieldChecksDone = true
	default:
	}
	return rep
}

func (s *CatalogService) run(ctx context.Context, source string, c *catalog.Catalog, wait time.Duration) Report {
	id := uuid.NewString()
	log := s.log.With("run", id, "source", source)
	sess := validate.NewSession(validate.SinkFunc(func(e validate.Error) {
		s.cfg.Metrics.validationError(e)
		s.cfg.Bus.Publish(Event{Resource: ResourceValidation, Action: ActionReported, ID: id, Data: e})
	}))
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.ValidationRuns.Inc()
	}

	checkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fieldCheckTimeout)
	r := &validationRun{
		report: Report{ID: id, Source: source, StartedAt: time.Now().UTC()},
		sess:   sess,
		fc:     s.cfg.Validator.Run(checkCtx, c, sess),
	}
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.FieldRequests.Add(float64(r.fc.Requests()))
	}
	s.store(r.snapshot())

	go func() {
		defer cancel()
		<-r.fc.Done()
		rep := r.snapshot()
		s.storeIfCurrent(rep)
		s.cfg.Bus.Publish(Event{Resource: ResourceValidation, Action: ActionCompleted, ID: id, Data: rep})
		log.Info("validation finished", "fatal", rep.Fatal, "warnings", rep.Warnings, "fieldRequests", rep.FieldRequests)
		s.record(rep)
	}()

	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-r.fc.Done():
		case <-timer.C:
			log.Debug("field checks still running", "waited", wait)
		case <-ctx.Done():
		}
	}
	return r.snapshot()
}

func (s *CatalogService) store(rep Report) {
	s.mu.Lock()
	s.last = &rep
	s.mu.Unlock()
}

func (s *CatalogService) storeIfCurrent(rep Report) {
	s.mu.Lock()
	if s.last != nil && s.last.ID == rep.ID {
		s.last = &rep
	}
	s.mu.Unlock()
}

func (s *CatalogService) record(rep Report) {
	if s.cfg.History == nil {
		return
	}
	err := s.cfg.History.RecordValidation(context.Background(), db.ValidationRecord{
		ID:            rep.ID,
		Source:        rep.Source,
		Errors:        len(rep.Errors),
		Fatal:         rep.Fatal,
		Warnings:      rep.Warnings,
		FieldRequests: rep.FieldRequests,
		CreatedAt:     rep.StartedAt,
	})
	if err != nil {
		s.log.Warn("validation history not recorded", "run", rep.ID, "error", err)
	}
}

// String renders a summary line followed by one line per problem, in the
// order found.
func (r Report) String() string {
	state := "valid"
	if !r.Valid {
		state = "invalid"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s, %d error(s), %d warning(s)", r.Source, state, r.Fatal, r.Warnings)
	for _, e := range r.Errors {
		b.WriteString("\n  ")
		b.WriteString(e.String())
	}
	return b.String()
}
