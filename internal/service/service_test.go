package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-pod/internal/catalog"
	"github.com/joeblew999/plat-pod/internal/db"
	"github.com/joeblew999/plat-pod/internal/validate"
)

const samplePath = "../../configs/podconfig.yaml"

type fixture struct {
	bus      *EventBus
	metrics  *Metrics
	history  *db.History
	catalogs *CatalogService
	queue    *QueueService
	dir      string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn, err := db.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	h, err := db.NewHistory(context.Background(), conn)
	require.NoError(t, err)

	f := &fixture{bus: NewEventBus(), metrics: NewMetrics(), history: h, dir: t.TempDir()}
	f.catalogs = NewCatalogService(CatalogConfig{
		Path:      samplePath,
		Validator: &validate.Validator{},
		Bus:       f.bus,
		Metrics:   f.metrics,
		History:   h,
	})
	_, err = f.catalogs.Load(context.Background())
	require.NoError(t, err)
	f.queue = f.newQueue()
	return f
}

func (f *fixture) newQueue() *QueueService {
	return NewQueueService(QueueConfig{
		DataDir:  f.dir,
		Catalogs: f.catalogs,
		Bus:      f.bus,
		Metrics:  f.metrics,
		History:  f.history,
	})
}

func rect(w, h float64) orb.Polygon {
	return orb.Polygon{{{0, 0}, {0, h}, {w, h}, {w, 0}, {0, 0}}}
}

func sheetFeature() *geojson.Feature {
	feat := geojson.NewFeature(rect(12000, 15000))
	feat.Properties["QUAD_NAME"] = "Abbeville"
	feat.Properties["SECOORD"] = "34087-C4"
	return feat
}

func nextEvent(t *testing.T, ch chan Event, resource, action string) Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case e := <-ch:
			if e.Resource == resource && e.Action == action {
				return e
			}
		case <-timeout:
			t.Fatalf("no %s %s event", resource, action)
			return Event{}
		}
	}
}

func TestCatalogServiceLoad(t *testing.T) {
	f := newFixture(t)

	ts, err := f.catalogs.Templates()
	require.NoError(t, err)
	require.Len(t, ts, 4)
	assert.Equal(t, "Fixed 25K", ts[0].Name)

	rep, ok := f.catalogs.LastReport()
	require.True(t, ok)
	assert.True(t, rep.Valid)
	assert.True(t, rep.FieldChecksDone)
	assert.Equal(t, samplePath, rep.Source)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ValidationRuns))

	d, err := f.catalogs.Domain("ScaleList")
	require.NoError(t, err)
	assert.Len(t, d.Entries, 6)

	_, err = f.catalogs.Domain("Nope")
	assert.ErrorIs(t, err, catalog.ErrNotDefined)
}

func TestCatalogServiceRefusesFatalCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ProductDefinitions:\n  - { attrTable: Missing }\n"), 0644))

	s := NewCatalogService(CatalogConfig{Path: path})
	rep, err := s.Load(context.Background())
	assert.ErrorIs(t, err, ErrCatalogInvalid)
	assert.False(t, rep.Valid)
	assert.Positive(t, rep.Fatal)
	assert.Contains(t, rep.String(), path+": invalid")
	assert.Contains(t, rep.String(), "\n  error: Attribute table (Missing) is not defined, referenced from: ProductDefinitions[0].attrTable")

	_, err = s.Catalog()
	assert.ErrorIs(t, err, ErrNoCatalog)
	_, err = s.Templates()
	assert.ErrorIs(t, err, ErrNoCatalog)
}

func TestCatalogServiceValidatePublishes(t *testing.T) {
	f := newFixture(t)
	ch := f.bus.Subscribe()
	defer f.bus.Unsubscribe(ch)

	data, err := os.ReadFile(samplePath)
	require.NoError(t, err)
	bad := strings.Replace(string(data), "{ attrTable: DynamicPageTable, instanceTable: DynamicPageInstanceTable }", "{ attrTable: MissingTable }", 1)

	rep, err := f.catalogs.Validate(context.Background(), "upload", []byte(bad), time.Second)
	require.NoError(t, err)
	assert.False(t, rep.Valid)
	assert.Equal(t, "upload", rep.Source)
	assert.Equal(t, rep.Fatal+rep.Warnings, len(rep.Errors))

	e := nextEvent(t, ch, ResourceValidation, "reported")
	assert.Equal(t, rep.ID, e.ID)
	assert.IsType(t, validate.Error{}, e.Data)

	done := nextEvent(t, ch, ResourceValidation, "completed")
	assert.Equal(t, rep.ID, done.ID)

	// The installed catalog is untouched by a failed validation.
	_, err = f.catalogs.Factory()
	assert.NoError(t, err)

	last, ok := f.catalogs.LastReport()
	require.True(t, ok)
	assert.Equal(t, rep.ID, last.ID)
	assert.Positive(t, testutil.ToFloat64(f.metrics.ValidationErrors.WithLabelValues(string(rep.Errors[0].Kind), rep.Errors[0].Severity.String())))

	_, err = f.catalogs.Validate(context.Background(), "upload", []byte("- a\n- b\n"), 0)
	assert.Error(t, err)
}

func TestQueueAddFixed(t *testing.T) {
	f := newFixture(t)
	ch := f.bus.Subscribe()
	defer f.bus.Unsubscribe(ch)

	p, err := f.queue.Add(context.Background(), AddRequest{Product: "Fixed 25K", Feature: sheetFeature()})
	require.NoError(t, err)

	assert.Equal(t, "Abbeville", p.Text(catalog.AttrMapSheetName))
	assert.Equal(t, "34087-C4", p.Text("quad_id"))
	require.NotNil(t, p.Layout)
	assert.Positive(t, p.Number(catalog.AttrWidth))
	assert.Positive(t, p.Number(catalog.AttrHeight))
	assert.Equal(t, 1, f.queue.Len())

	e := nextEvent(t, ch, ResourceQueue, "created")
	assert.Equal(t, p.ID.String(), e.ID)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Layouts))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.QueueSize))

	recs, err := f.history.Layouts(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Fixed 25K", recs[0].Product)
	assert.Equal(t, 250000.0, recs[0].Scale)
}

func TestQueueAddCustom(t *testing.T) {
	f := newFixture(t)

	feat := geojson.NewFeature(rect(4000, 2000))
	feat.Properties["STATE_NAME"] = "Alabama"
	a, err := f.queue.Add(context.Background(), AddRequest{Product: "Dynamic Area", Custom: true, Feature: feat})
	require.NoError(t, err)
	b, err := f.queue.Add(context.Background(), AddRequest{Product: "DynamicAreaTable", Custom: true, Feature: feat})
	require.NoError(t, err)

	assert.Equal(t, "Dynamic Area_0", a.Text(catalog.AttrMapSheetName))
	assert.Equal(t, "Dynamic Area_1", b.Text(catalog.AttrMapSheetName))
	assert.NotNil(t, a.Layout)
	assert.Equal(t, rect(4000, 2000), a.Footprint.Polygon)
}

func TestQueueAddErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.queue.Add(ctx, AddRequest{Product: "Atlas"})
	assert.Error(t, err)

	_, err = f.queue.Add(ctx, AddRequest{Product: "Fixed 25K", Feature: geojson.NewFeature(orb.Point{1, 2})})
	assert.Error(t, err)

	_, err = f.queue.Add(ctx, AddRequest{Product: "Fixed 25K", Feature: sheetFeature(), Values: map[string]any{"nope": 1}})
	var attrErr *AttributeError
	require.ErrorAs(t, err, &attrErr)
	assert.Equal(t, "nope", attrErr.Attribute)

	// Custom products without a drawn shape have nothing to lay out.
	_, err = f.queue.Add(ctx, AddRequest{Product: "Dynamic Area", Custom: true})
	assert.Error(t, err)
	assert.Equal(t, 0, f.queue.Len())
	assert.Positive(t, testutil.ToFloat64(f.metrics.LayoutFailures))
}

func TestQueueScaleProduct(t *testing.T) {
	f := newFixture(t)
	scale := 123456.0
	p, err := f.queue.Add(context.Background(), AddRequest{
		Product: "Dynamic Scale",
		Custom:  true,
		Feature: geojson.NewFeature(rect(20000, 30000)),
		Values:  map[string]any{"units": "Meters"},
		Scale:   &scale,
	})
	require.NoError(t, err)
	assert.Equal(t, 124000.0, p.Number(catalog.AttrScale))
}

func TestQueueFull(t *testing.T) {
	f := newFixture(t)
	data, err := os.ReadFile(samplePath)
	require.NoError(t, err)
	c, err := catalog.Parse([]byte(strings.Replace(string(data), "maxProductsInExportGrid: 50", "maxProductsInExportGrid: 1", 1)))
	require.NoError(t, err)
	f.catalogs.Install(c)

	_, err = f.queue.Add(context.Background(), AddRequest{Product: "Fixed 25K", Feature: sheetFeature()})
	require.NoError(t, err)
	_, err = f.queue.Add(context.Background(), AddRequest{Product: "Fixed 25K", Feature: sheetFeature()})
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestQueueFullConcurrentAdds(t *testing.T) {
	f := newFixture(t)
	data, err := os.ReadFile(samplePath)
	require.NoError(t, err)
	c, err := catalog.Parse([]byte(strings.Replace(string(data), "maxProductsInExportGrid: 50", "maxProductsInExportGrid: 1", 1)))
	require.NoError(t, err)
	f.catalogs.Install(c)
	q := NewQueueService(QueueConfig{DataDir: t.TempDir(), Catalogs: f.catalogs})

	const n = 64
	var (
		wg    sync.WaitGroup
		full  atomic.Int32
		start = make(chan struct{})
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := q.Add(context.Background(), AddRequest{Product: "Fixed 25K", Feature: sheetFeature()})
			if errors.Is(err, ErrQueueFull) {
				full.Add(1)
			} else {
				assert.NoError(t, err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, q.Len())
	assert.Equal(t, int32(n-1), full.Load())
}

func TestQueueKeepsItemsWhenSaveFails(t *testing.T) {
	f := newFixture(t)
	notDir := filepath.Join(t.TempDir(), "queue")
	require.NoError(t, os.WriteFile(notDir, nil, 0644))
	q := NewQueueService(QueueConfig{DataDir: notDir, Catalogs: f.catalogs, Metrics: f.metrics})

	_, err := q.Add(context.Background(), AddRequest{Product: "Fixed 25K", Feature: sheetFeature()})
	require.Error(t, err)
	assert.Zero(t, q.Len())
	assert.Empty(t, q.List())
}

func TestQueueUpdateDeleteAndPersistence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.queue.Add(ctx, AddRequest{Product: "Fixed 25K", Feature: sheetFeature()})
	require.NoError(t, err)
	id := p.ID.String()

	up, err := f.queue.Update(ctx, id, map[string]any{"customName": "North Sheet"})
	require.NoError(t, err)
	assert.Equal(t, "North Sheet", up.Text(catalog.AttrCustomName))
	assert.Equal(t, "", p.Text(catalog.AttrCustomName), "update must not mutate the previous value")

	_, err = f.queue.Update(ctx, id, map[string]any{"productName": "Other"})
	assert.Error(t, err)
	_, err = f.queue.Update(ctx, "missing", nil)
	assert.ErrorIs(t, err, ErrNotFound)

	reloaded := f.newQueue()
	got, err := reloaded.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "North Sheet", got.Text(catalog.AttrCustomName))
	assert.Equal(t, "Abbeville", got.Text(catalog.AttrMapSheetName))
	require.NotNil(t, got.Layout)

	require.NoError(t, f.queue.Delete(id))
	assert.ErrorIs(t, f.queue.Delete(id), ErrNotFound)
	assert.Empty(t, f.newQueue().List())
}

func TestQueueExport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.queue.Add(ctx, AddRequest{Product: "Fixed 25K", Feature: sheetFeature()})
	require.NoError(t, err)
	_, err = f.queue.Add(ctx, AddRequest{Product: "Fixed 25K", Feature: sheetFeature()})
	require.NoError(t, err)

	params, err := f.queue.Export(a.ID.String(), "Preview")
	require.NoError(t, err)
	assert.Equal(t, "Preview", params["exportOption"])
	assert.Equal(t, "Fixed 25K", params["productName"])
	assert.Equal(t, "Abbeville", params["mapSheetName"])
	assert.NotNil(t, params["geometry"])
	assert.NotContains(t, params, "orientation")

	_, err = f.queue.Export("missing", "Export")
	assert.ErrorIs(t, err, ErrNotFound)

	names := f.queue.Names()
	require.Len(t, names, 2)
	assert.False(t, names[0].Duplicate)
	assert.True(t, names[1].Duplicate)
	assert.True(t, names[1].Valid)
}

func TestEventBusFilters(t *testing.T) {
	b := NewEventBus()
	all := b.Subscribe()
	queue := b.Subscribe(ResourceQueue)
	defer b.Unsubscribe(all)
	defer b.Unsubscribe(queue)

	b.Publish(Event{Resource: ResourceValidation, Action: ActionReported, ID: "run"})
	b.Publish(Event{Resource: ResourceQueue, Action: ActionCreated, ID: "p1"})

	assert.Equal(t, "run", (<-all).ID)
	assert.Equal(t, "p1", (<-all).ID)
	assert.Equal(t, "p1", (<-queue).ID)
	assert.Empty(t, queue)

	var nilBus *EventBus
	nilBus.Publish(Event{Resource: ResourceQueue})
}
