package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-pod/internal/catalog"
	"github.com/joeblew999/plat-pod/internal/db"
	"github.com/joeblew999/plat-pod/internal/page"
	"github.com/joeblew999/plat-pod/internal/product"
)

var (
	// ErrNotFound is returned for an unknown queue item.
	ErrNotFound = errors.New("product not in queue")
	// ErrQueueFull is returned when the queue holds the catalog's
	// maxProductsInExportGrid products.
	ErrQueueFull = errors.New("export queue is full")
)

// AttributeError reports a value for an attribute the product lacks, or
// one it does not allow to be set.
type AttributeError struct {
	Attribute string
}

func (e *AttributeError) Error() string {
	return fmt.Sprintf("product has no settable attribute %q", e.Attribute)
}

// AddRequest describes a product to place in the queue.
type AddRequest struct {
	// Product is the template name or attribute table.
	Product string
	// Custom marks a user drawn area; its attribute values are not taken
	// from the feature properties.
	Custom  bool
	Feature *geojson.Feature
	Values  map[string]any
	// Scale is the calculated scale of a Scale product, rounded to the
	// catalog's scales before layout.
	Scale *float64
	// PageSize is the calculated page of a PageSize product.
	PageSize *page.Size
}

// QueueConfig configures a QueueService.
type QueueConfig struct {
	DataDir  string
	Catalogs *CatalogService
	Bus      *EventBus
	Metrics  *Metrics
	History  *db.History
	Logger   *slog.Logger
}

// QueueService holds the products waiting for export, persisted to
// queue.json in the data directory.
type QueueService struct {
	cfg   QueueConfig
	log   *slog.Logger
	mu    sync.RWMutex
	items []*product.Product
}

// NewQueueService creates a queue service and loads the persisted queue.
func NewQueueService(cfg QueueConfig) *QueueService {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &QueueService{cfg: cfg, log: cfg.Logger}
	s.loadFromDisk()
	s.gauge()
	return s
}

// List returns the queued products in the order they were added.
func (s *QueueService) List() []*product.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*product.Product(nil), s.items...)
}

// Get returns a queued product by ID.
func (s *QueueService) Get(id string) (*product.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.index(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	return s.items[i], nil
}

// Add instantiates a product, lays out its page and appends it.
func (s *QueueService) Add(ctx context.Context, req AddRequest) (*product.Product, error) {
	f, err := s.cfg.Catalogs.Factory()
	if err != nil {
		return nil, err
	}
	limit := maxQueued(f.Catalog())
	if limit > 0 && s.Len() >= limit {
		return nil, fmt.Errorf("%w: %d products", ErrQueueFull, limit)
	}

	t, err := f.Template(req.Product)
	if err != nil {
		return nil, err
	}

	var p *product.Product
	if req.Custom {
		p, err = f.Instantiate(t, true, nil)
		if err == nil && req.Feature != nil {
			err = drawn(p, req.Feature)
		}
	} else {
		p, err = f.Instantiate(t, false, req.Feature)
	}
	if err != nil {
		return nil, err
	}

	if err := setValues(p, req.Values); err != nil {
		return nil, err
	}
	if req.Scale != nil {
		f.ApplyScale(p, *req.Scale)
	}
	if req.PageSize != nil {
		f.ApplyPageSize(p, *req.PageSize)
	}
	if err := s.layout(ctx, f, p); err != nil {
		return nil, err
	}

	s.mu.Lock()
	// Other adds may have filled the queue while this one was laid out.
	if limit > 0 && len(s.items) >= limit {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %d products", ErrQueueFull, limit)
	}
	err = s.commit(append(slices.Clone(s.items), p))
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.gauge()
	s.cfg.Bus.Publish(Event{Resource: ResourceQueue, Action: ActionCreated, ID: p.ID.String(), Data: p})
	s.log.Info("product queued", "id", p.ID, "product", p.Name, "custom", p.IsCustom)
	return p, nil
}

// Update sets attribute values of a queued product and lays it out again.
func (s *QueueService) Update(ctx context.Context, id string, values map[string]any) (*product.Product, error) {
	f, err := s.cfg.Catalogs.Factory()
	if err != nil {
		return nil, err
	}
	cur, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	p := *cur
	p.Attributes = cur.Attributes.Clone()
	if err := setValues(&p, values); err != nil {
		return nil, err
	}
	if err := s.layout(ctx, f, &p); err != nil {
		return nil, err
	}

	s.mu.Lock()
	i := s.index(id)
	if i < 0 {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	items := slices.Clone(s.items)
	items[i] = &p
	err = s.commit(items)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.cfg.Bus.Publish(Event{Resource: ResourceQueue, Action: ActionUpdated, ID: id, Data: &p})
	return &p, nil
}

// Delete removes a product from the queue.
func (s *QueueService) Delete(id string) error {
	s.mu.Lock()
	i := s.index(id)
	if i < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	err := s.commit(slices.Delete(slices.Clone(s.items), i, i+1))
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.gauge()
	s.cfg.Bus.Publish(Event{Resource: ResourceQueue, Action: ActionDeleted, ID: id})
	return nil
}

// Export returns the parameters the export service is called with for a
// queued product.
func (s *QueueService) Export(id, option string) (map[string]any, error) {
	p, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return p.ExportParams(option), nil
}

// Names checks the export names of the queue: custom names must be valid
// and no two products may export under the same name.
func (s *QueueService) Names() []product.ExportName {
	return product.ExportNames(s.List())
}

// Len returns the number of queued products.
func (s *QueueService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *QueueService) layout(ctx context.Context, f *product.Factory, p *product.Product) error {
	res, err := f.Layout(p)
	s.cfg.Metrics.layout(err)
	if err != nil {
		return err
	}
	if s.cfg.History == nil {
		return nil
	}
	rec := db.LayoutRecord{
		ID:             p.ID.String(),
		Product:        p.Name,
		ProductType:    p.Type,
		Scale:          p.Number(catalog.AttrScale),
		Width:          res.Width,
		Height:         res.Height,
		Units:          string(res.Units),
		ReferenceScale: res.ReferenceScale,
		Angle:          res.Angle,
	}
	if err := s.cfg.History.RecordLayout(ctx, rec); err != nil {
		s.log.Warn("layout history not recorded", "id", p.ID, "error", err)
	}
	return nil
}

func (s *QueueService) index(id string) int {
	for i, p := range s.items {
		if p.ID.String() == id {
			return i
		}
	}
	return -1
}

func (s *QueueService) gauge() {
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.QueueSize.Set(float64(s.Len()))
	}
}

// drawn sets the footprint of a custom product from a user drawn shape.
func drawn(p *product.Product, feature *geojson.Feature) error {
	fp, err := product.FootprintOf(feature)
	if err != nil {
		return err
	}
	p.SetFootprint(fp)
	return nil
}

func setValues(p *product.Product, values map[string]any) error {
	for k, v := range values {
		if !p.SetValue(catalog.AttributeName(k), catalog.ValueOf(v)) {
			return &AttributeError{Attribute: k}
		}
	}
	return nil
}

func maxQueued(c *catalog.Catalog) int {
	v, ok := c.Setting("maxProductsInExportGrid")
	if !ok {
		return 0
	}
	n, _ := v.Num()
	return int(n)
}

func (s *QueueService) configFile() string {
	return filepath.Join(s.cfg.DataDir, "queue.json")
}

func (s *QueueService) loadFromDisk() {
	data, err := os.ReadFile(s.configFile())
	if err != nil {
		return
	}
	var items []*product.Product
	if err := json.Unmarshal(data, &items); err != nil {
		s.log.Warn("ignoring unreadable queue file", "path", s.configFile(), "error", err)
		return
	}
	s.items = items
}

// commit persists items and makes them the queue. On error the queue is
// left as it was. Callers hold s.mu.
func (s *QueueService) commit(items []*product.Product) error {
	if err := s.saveToDisk(items); err != nil {
		return fmt.Errorf("save queue: %w", err)
	}
	s.items = items
	return nil
}

func (s *QueueService) saveToDisk(items []*product.Product) error {
	if err := os.MkdirAll(s.cfg.DataDir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.configFile(), data, 0644)
}
