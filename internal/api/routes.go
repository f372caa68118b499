// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-pod/internal/catalog"
	"github.com/joeblew999/plat-pod/internal/humastar"
	"github.com/joeblew999/plat-pod/internal/page"
	"github.com/joeblew999/plat-pod/internal/pageextent"
	"github.com/joeblew999/plat-pod/internal/product"
	"github.com/joeblew999/plat-pod/internal/service"
	"github.com/joeblew999/plat-pod/internal/units"
)

// Version is reported by /health and /api/v1/info.
const Version = "0.1.0"

// Services holds the service dependencies for API handlers.
type Services struct {
	Catalogs  *service.CatalogService
	Queue     *service.QueueService
	Converter units.Converter
}

// Types

type IDInput struct {
	ID string `path:"id" doc:"Product instance UUID" example:"6f1c1a9e-8f3b-4bd5-9a55-3a8f0f2e4c11"`
}

type NameInput struct {
	Name string `path:"name" doc:"Catalog table name" example:"PageSizeList"`
}

type MessageBody struct {
	Message string `json:"message" doc:"Result message"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"0.1.0"`
	Catalog bool   `json:"catalog" doc:"Whether a product catalog is loaded"`
}

type ValidateInput struct {
	Source      string  `query:"source" default:"upload" doc:"Label recorded with the run"`
	WaitSeconds float64 `query:"waitSeconds" minimum:"0" maximum:"120" doc:"How long to wait for remote field checks"`
	RawBody     []byte
}

type ReportOutput struct {
	Body service.Report
}

// Polygon is a GeoJSON polygon's coordinates: rings of [x, y] positions,
// the exterior ring first.
type Polygon [][][2]float64

type LayoutBody struct {
	Polygon     Polygon  `json:"polygon" minItems:"1" doc:"Footprint as GeoJSON polygon coordinates, in ground units"`
	Angle       *float64 `json:"angle,omitempty" doc:"Extent layer Angle field, degrees from north"`
	Direction   string   `json:"direction,omitempty" doc:"Extent layer Direction field" example:"NORTH"`
	Scale       float64  `json:"scale" exclusiveMinimum:"0" doc:"Map scale denominator" example:"25000"`
	Width       float64  `json:"width,omitempty" minimum:"0" doc:"Ground width; filled from the page when zero"`
	Height      float64  `json:"height,omitempty" minimum:"0" doc:"Ground height; filled from the page when zero"`
	Units       string   `json:"units,omitempty" doc:"Ground units, METERS when empty" example:"METERS"`
	PageSize    string   `json:"pageSize" minLength:"1" doc:"Standard page name or custom size" example:"Letter"`
	Orientation string   `json:"orientation,omitempty" default:"Portrait" doc:"Portrait or Landscape"`
	PageMargin  string   `json:"pageMargin,omitempty" doc:"One to four margin values, optional page units" example:"0.5 0.5 0.5 0.5 INCHES"`
}

type PageSizeBody struct {
	Width  float64 `json:"width" exclusiveMinimum:"0"`
	Height float64 `json:"height" exclusiveMinimum:"0"`
	Units  string  `json:"units" example:"INCHES"`
}

type AddBody struct {
	Product    string         `json:"product" minLength:"1" doc:"Product name or attribute table" example:"Fixed 25K"`
	Custom     bool           `json:"custom,omitempty" doc:"User drawn area rather than an extent layer feature"`
	Polygon    Polygon        `json:"polygon,omitempty" doc:"Footprint as GeoJSON polygon coordinates"`
	Properties map[string]any `json:"properties,omitempty" doc:"Extent layer feature fields"`
	Values     map[string]any `json:"values,omitempty" doc:"Attribute values to set"`
	Scale      *float64       `json:"scale,omitempty" doc:"Calculated scale of a Scale product"`
	PageSize   *PageSizeBody  `json:"pageSize,omitempty" doc:"Calculated page of a PageSize product"`
}

type UpdateBody struct {
	Values map[string]any `json:"values" doc:"Attribute values to set"`
}

type ListInput struct {
	Offset int `query:"offset" minimum:"0" default:"0"`
	Limit  int `query:"limit" minimum:"0" maximum:"500" default:"50"`
}

type ExportInput struct {
	IDInput
	Option string `query:"option" enum:"Preview,Export" default:"Export" doc:"Export option passed to the export service"`
}

var queueActions = []humastar.ActionDef{
	{Rel: "preview", Pattern: "/api/v1/queue/%s/export?option=Preview", Method: http.MethodGet, Title: "Preview parameters"},
	{Rel: "export", Pattern: "/api/v1/queue/%s/export?option=Export", Method: http.MethodGet, Title: "Export parameters"},
	{Rel: "delete", Pattern: "/api/v1/queue/%s", Method: http.MethodDelete, Title: "Remove from queue"},
}

// QueueItem is a queued product with its actions.
type QueueItem struct {
	product.Product
}

func (q QueueItem) Actions() []humastar.Action {
	return humastar.ActionsFor(q.ID.String(), queueActions)
}

type QueueItemOutput struct {
	Body QueueItem
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterCatalog registers product and domain routes.
func (h *APIHandler) RegisterCatalog(api huma.API) {
	huma.Get(api, "/api/v1/products", h.GetProducts, huma.OperationTags("catalog"))
	huma.Get(api, "/api/v1/domains/{name}", h.GetDomain, huma.OperationTags("catalog"))
}

// RegisterValidation registers catalog validation routes.
func (h *APIHandler) RegisterValidation(api huma.API) {
	huma.Post(api, "/api/v1/validate", h.Validate, huma.OperationTags("validation"))
	huma.Get(api, "/api/v1/validation", h.GetValidation, huma.OperationTags("validation"))
}

// RegisterLayout registers the stateless layout route.
func (h *APIHandler) RegisterLayout(api huma.API) {
	huma.Post(api, "/api/v1/layout", h.Layout, huma.OperationTags("layout"))
}

// RegisterQueue registers export queue routes.
func (h *APIHandler) RegisterQueue(api huma.API) {
	huma.Get(api, "/api/v1/queue", h.GetQueue, huma.OperationTags("queue"))
	huma.Post(api, "/api/v1/queue", h.AddToQueue, huma.OperationTags("queue"), func(o *huma.Operation) {
		o.DefaultStatus = http.StatusCreated
	})
	huma.Get(api, "/api/v1/queue/names", h.GetExportNames, huma.OperationTags("queue"))
	huma.Get(api, "/api/v1/queue/{id}", h.GetQueueItem, huma.OperationTags("queue"))
	huma.Put(api, "/api/v1/queue/{id}", h.PutQueueItem, huma.OperationTags("queue"))
	huma.Delete(api, "/api/v1/queue/{id}", h.DeleteQueueItem, huma.OperationTags("queue"))
	huma.Get(api, "/api/v1/queue/{id}/export", h.ExportQueueItem, huma.OperationTags("queue"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *humastar.EmptyInput) (*struct{ Body HealthBody }, error) {
	_, err := h.svc.Catalogs.Catalog()
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: Version, Catalog: err == nil}}, nil
}

func (h *APIHandler) GetProducts(ctx context.Context, input *humastar.EmptyInput) (*struct{ Body []product.Template }, error) {
	ts, err := h.svc.Catalogs.Templates()
	if err != nil {
		return nil, problem(err)
	}
	return &struct{ Body []product.Template }{Body: ts}, nil
}

func (h *APIHandler) GetDomain(ctx context.Context, input *NameInput) (*struct{ Body catalog.Domain }, error) {
	d, err := h.svc.Catalogs.Domain(input.Name)
	if err != nil {
		return nil, problem(err)
	}
	return &struct{ Body catalog.Domain }{Body: d}, nil
}

func (h *APIHandler) Validate(ctx context.Context, input *ValidateInput) (*ReportOutput, error) {
	if len(input.RawBody) == 0 {
		return nil, huma.Error400BadRequest("catalog document required")
	}
	wait := time.Duration(input.WaitSeconds * float64(time.Second))
	rep, err := h.svc.Catalogs.Validate(ctx, input.Source, input.RawBody, wait)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	return &ReportOutput{Body: rep}, nil
}

func (h *APIHandler) GetValidation(ctx context.Context, input *humastar.EmptyInput) (*ReportOutput, error) {
	rep, ok := h.svc.Catalogs.LastReport()
	if !ok {
		return nil, huma.Error404NotFound("no validation has run")
	}
	return &ReportOutput{Body: rep}, nil
}

func (h *APIHandler) Layout(ctx context.Context, input *struct{ Body LayoutBody }) (*struct{ Body pageextent.Result }, error) {
	in, err := input.Body.Input()
	if err != nil {
		return nil, problem(err)
	}
	calc := pageextent.Calculator{Conv: h.svc.Converter}
	res, err := calc.Layout(in)
	if err != nil {
		return nil, problem(err)
	}
	return &struct{ Body pageextent.Result }{Body: res}, nil
}

func (h *APIHandler) GetQueue(ctx context.Context, input *ListInput) (*struct {
	Body humastar.PageBody[QueueItem]
}, error) {
	var items []QueueItem
	for _, p := range h.svc.Queue.List() {
		items = append(items, QueueItem{Product: *p})
	}
	return &struct {
		Body humastar.PageBody[QueueItem]
	}{Body: humastar.Paginate(items, input.Offset, input.Limit)}, nil
}

func (h *APIHandler) AddToQueue(ctx context.Context, input *struct{ Body AddBody }) (*QueueItemOutput, error) {
	req, err := addRequest(input.Body)
	if err != nil {
		return nil, problem(err)
	}
	p, err := h.svc.Queue.Add(ctx, req)
	if err != nil {
		return nil, problem(err)
	}
	return &QueueItemOutput{Body: QueueItem{Product: *p}}, nil
}

func (h *APIHandler) GetExportNames(ctx context.Context, input *humastar.EmptyInput) (*struct{ Body []product.ExportName }, error) {
	return &struct{ Body []product.ExportName }{Body: h.svc.Queue.Names()}, nil
}

func (h *APIHandler) GetQueueItem(ctx context.Context, input *IDInput) (*QueueItemOutput, error) {
	p, err := h.svc.Queue.Get(input.ID)
	if err != nil {
		return nil, problem(err)
	}
	return &QueueItemOutput{Body: QueueItem{Product: *p}}, nil
}

func (h *APIHandler) PutQueueItem(ctx context.Context, input *struct {
	IDInput
	Body UpdateBody
}) (*QueueItemOutput, error) {
	p, err := h.svc.Queue.Update(ctx, input.ID, input.Body.Values)
	if err != nil {
		return nil, problem(err)
	}
	return &QueueItemOutput{Body: QueueItem{Product: *p}}, nil
}

func (h *APIHandler) DeleteQueueItem(ctx context.Context, input *IDInput) (*struct{ Body MessageBody }, error) {
	if err := h.svc.Queue.Delete(input.ID); err != nil {
		return nil, problem(err)
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Product removed from queue"}}, nil
}

func (h *APIHandler) ExportQueueItem(ctx context.Context, input *ExportInput) (*struct{ Body map[string]any }, error) {
	params, err := h.svc.Queue.Export(input.ID, input.Option)
	if err != nil {
		return nil, problem(err)
	}
	return &struct{ Body map[string]any }{Body: params}, nil
}

// problem maps service and domain errors to HTTP errors.
func problem(err error) error {
	var attrErr *service.AttributeError
	switch {
	case errors.Is(err, service.ErrNotFound),
		errors.Is(err, product.ErrUnknownProduct),
		errors.Is(err, catalog.ErrNotDefined):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, service.ErrNoCatalog):
		return huma.Error503ServiceUnavailable(err.Error())
	case errors.Is(err, service.ErrQueueFull):
		return huma.Error409Conflict(err.Error())
	case errors.As(err, &attrErr),
		errors.Is(err, product.ErrNoFootprint),
		errors.Is(err, pageextent.ErrDegenerateGeometry),
		errors.Is(err, units.ErrUnsupportedUnit),
		errors.Is(err, page.ErrInvalidPageSize):
		return huma.Error422UnprocessableEntity(err.Error())
	default:
		return huma.Error500InternalServerError("request failed", err)
	}
}
