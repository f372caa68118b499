package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
)

type InfoHandler struct {
	dataDir     string
	catalogPath string
	dbOK        bool
	svc         *Services
}

func NewInfoHandler(dataDir, catalogPath string, dbOK bool, svc *Services) *InfoHandler {
	return &InfoHandler{dataDir: dataDir, catalogPath: catalogPath, dbOK: dbOK, svc: svc}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name        string   `json:"name" doc:"Service name"`
	Version     string   `json:"version" doc:"Service version"`
	DataDir     string   `json:"data_dir" doc:"Data directory path"`
	Catalog     string   `json:"catalog" doc:"Product catalog path"`
	Products    int      `json:"products" doc:"Products the catalog defines"`
	QueueLength int      `json:"queue_length" doc:"Products in the export queue"`
	StrictUnits bool     `json:"strict_units" doc:"Whether unknown units are rejected"`
	DB          bool     `json:"db" doc:"Whether database is available"`
	Features    []string `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	body := InfoBody{
		Name:        "plat-pod",
		Version:     Version,
		DataDir:     h.dataDir,
		Catalog:     h.catalogPath,
		StrictUnits: !h.svc.Converter.Legacy,
		DB:          h.dbOK,
		Features:    []string{"catalog-validation", "page-layout", "export-queue", "duckdb", "metrics"},
	}
	if c, err := h.svc.Catalogs.Catalog(); err == nil {
		body.Products = len(c.ProductDefinitions())
	}
	if h.svc.Queue != nil {
		body.QueueLength = h.svc.Queue.Len()
	}
	return &struct{ Body InfoBody }{Body: body}, nil
}
