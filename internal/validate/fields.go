package validate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/joeblew999/plat-pod/internal/catalog"
)

// ErrNoFields is returned by a FieldLister when a layer answers without a
// fields list.
var ErrNoFields = errors.New("no fields list in layer response")

// FieldLister returns the field names of an extent layer.
type FieldLister interface {
	Fields(ctx context.Context, layerURL string) ([]string, error)
}

// HTTPFieldLister reads field lists from map service layer endpoints
// ("<service>/MapServer/<n>?f=json"). Lists are cached per URL; requests
// are rate limited.
type HTTPFieldLister struct {
	client  *http.Client
	limiter *rate.Limiter
	cache   *cache.Cache
}

// NewHTTPFieldLister returns a lister allowing rps requests per second and
// caching field lists for ttl. A nil client uses a client with a 30 second
// timeout.
func NewHTTPFieldLister(client *http.Client, rps float64, ttl time.Duration) *HTTPFieldLister {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &HTTPFieldLister{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		cache:   cache.New(ttl, 2*ttl),
	}
}

type layerResponse struct {
	Fields []struct {
		Name string `json:"name"`
	} `json:"fields"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (l *HTTPFieldLister) Fields(ctx context.Context, layerURL string) ([]string, error) {
	if v, ok := l.cache.Get(layerURL); ok {
		return v.([]string), nil
	}
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u, err := url.Parse(layerURL)
	if err != nil {
		return nil, fmt.Errorf("layer url: %w", err)
	}
	q := u.Query()
	q.Set("f", "json")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", layerURL, resp.Status)
	}

	var body layerResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode layer %s: %w", layerURL, err)
	}
	if body.Error != nil {
		return nil, fmt.Errorf("layer %s: %d %s", layerURL, body.Error.Code, body.Error.Message)
	}
	if body.Fields == nil {
		return nil, fmt.Errorf("layer %s: %w", layerURL, ErrNoFields)
	}

	names := make([]string, len(body.Fields))
	for i, f := range body.Fields {
		names[i] = f.Name
	}
	l.cache.Set(layerURL, names, cache.DefaultExpiration)
	return names, nil
}

// FieldCheck is the pending result of the remote field checks of one run.
type FieldCheck struct {
	done     chan struct{}
	requests int

	mu   sync.Mutex
	errs []Error
}

func resolved() *FieldCheck {
	f := &FieldCheck{done: make(chan struct{})}
	close(f.done)
	return f
}

// Done is closed when every field check has completed.
func (f *FieldCheck) Done() <-chan struct{} { return f.done }

// Requests is the number of layer requests dispatched.
func (f *FieldCheck) Requests() int { return f.requests }

// Wait blocks until every field check has completed or ctx is done. It
// returns the field check errors reported so far, and ctx.Err() if the
// checks had not completed.
func (f *FieldCheck) Wait(ctx context.Context) ([]Error, error) {
	select {
	case <-f.done:
		return f.Errors(), nil
	case <-ctx.Done():
		return f.Errors(), ctx.Err()
	}
}

// Errors returns the field check errors reported so far.
func (f *FieldCheck) Errors() []Error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Error(nil), f.errs...)
}

func (f *FieldCheck) report(s *Session, e Error) {
	f.mu.Lock()
	f.errs = append(f.errs, e)
	f.mu.Unlock()
	s.Report(e)
}

// layerCheck is every field expected on one layer URL.
type layerCheck struct {
	url      string
	fields   []string
	noField  []string
	fieldOK  []string
	noFields []string
}

type namedTable struct {
	name string
	rows catalog.Table
}

// planFieldChecks collects, per layer URL, the fields that attributes with
// a source read from extent layers. Only the extent layer a product uses is
// checked, and only when its product type names a source domain.
func (r *run) planFieldChecks() []*layerCheck {
	var (
		checks []*layerCheck
		byURL  = map[string]*layerCheck{}
	)
	for _, def := range r.c.ProductDefinitions() {
		prod, ok := r.c.Table(def.AttrTable)
		if !ok {
			continue
		}
		merged := catalog.MergeTables(r.base, prod)

		tables := []namedTable{{def.AttrTable, prod}}
		if inst, ok := r.c.Table(def.InstanceTable); ok {
			tables = append(tables, namedTable{def.InstanceTable, inst})
		}
		for _, nt := range tables {
			for _, a := range nt.rows {
				if a.Source != nil {
					r.planAttribute(nt.name, a, merged, byURL, &checks)
				}
			}
		}
	}
	return checks
}

func (r *run) planAttribute(table string, a catalog.Attribute, product catalog.Table, byURL map[string]*layerCheck, checks *[]*layerCheck) {
	typ, _ := product.Get(string(catalog.AttrType))
	types, ok := r.c.Domain(typ.DomainName())
	if !ok {
		return
	}
	entry, ok := types.Lookup(typ.Value)
	if !ok {
		return
	}
	layersName := entry.Text("source")
	if layersName == "" {
		return
	}
	layers, _ := r.c.Domain(layersName)
	extentLayer := product.Value(string(catalog.AttrExtentLayer))
	sourceField := a.SourceField()

	for i, layer := range layers.Entries {
		if !layer.Value().Equal(extentLayer) {
			continue
		}
		layerRef := fmt.Sprintf("%s[%d]", layersName, i)
		msg := fmt.Sprintf("%s['%s'].source", table, a.Attr)
		u := layer.Text("url") + "/" + layer["sublayer"].Text()

		field, ok := layer[sourceField].Str()
		if !ok {
			r.report(propertyNotFound(msg, layerRef, sourceField))
			continue
		}

		lc := byURL[u]
		if lc == nil {
			lc = &layerCheck{url: u}
			byURL[u] = lc
			*checks = append(*checks, lc)
		}
		check := fmt.Sprintf("Checking fields referred to in %s (%s)...\n\n", msg, sourceField)
		lc.noFields = append(lc.noFields, fmt.Sprintf("%sCannot obtain the fields list for layer %s at\n%s", check, layerRef, u))
		lc.noField = append(lc.noField, fmt.Sprintf("%sThe field (%s) cannot be found in layer %s at\n%s", check, field, layerRef, u))
		lc.fieldOK = append(lc.fieldOK, fmt.Sprintf("Field %s.%s (%s) check OK", layerRef, sourceField, field))
		lc.fields = append(lc.fields, strings.ToLower(field))
		r.log.Debug("field prepared for availability check", "layer", layerRef, "source", sourceField, "field", field)
	}
}

func (v *Validator) dispatch(ctx context.Context, checks []*layerCheck, sess *Session) *FieldCheck {
	if len(checks) == 0 {
		return resolved()
	}
	f := &FieldCheck{done: make(chan struct{}), requests: len(checks)}
	workers := v.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	var g errgroup.Group
	g.SetLimit(workers)
	go func() {
		defer close(f.done)
		for _, lc := range checks {
			g.Go(func() error {
				v.checkLayer(ctx, lc, sess, f)
				return nil
			})
		}
		_ = g.Wait()
	}()
	return f
}

func (v *Validator) checkLayer(ctx context.Context, lc *layerCheck, sess *Session, f *FieldCheck) {
	log := v.logger()
	fields, err := v.Lister.Fields(ctx, lc.url)
	if err != nil {
		log.Warn("field list unavailable", "url", lc.url, "error", err)
		msg := lc.noFields[0]
		if !errors.Is(err, ErrNoFields) {
			msg = err.Error() + "\n\n" + msg
		}
		f.report(sess, warning(KindFieldsUnavailable, "%s", msg))
		return
	}

	have := make(map[string]bool, len(fields))
	for _, name := range fields {
		have[strings.ToLower(name)] = true
	}
	for i, name := range lc.fields {
		if have[name] {
			log.Debug(lc.fieldOK[i])
			continue
		}
		f.report(sess, warning(KindFieldNotFound, "%s", lc.noField[i]))
	}
}
