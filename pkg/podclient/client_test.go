//go:build integration

// Integration test for the client.
// Requires a running server with the sample catalog: task run
//
// Run: go test -tags=integration ./pkg/podclient/
package podclient_test

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-pod/pkg/podclient"
)

func baseURL() string {
	if u := os.Getenv("POD_BASE_URL"); u != "" {
		return u
	}
	return "http://localhost:8086"
}

func client() *podclient.Client {
	return podclient.New(baseURL(), nil)
}

var square = podclient.Polygon{{{0, 0}, {1000, 0}, {1000, 1000}, {0, 1000}, {0, 0}}}

func TestHealth(t *testing.T) {
	_, body, err := client().Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", body.Status)
	assert.True(t, body.Catalog)
}

func TestInfo(t *testing.T) {
	_, body, err := client().Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "plat-pod", body.Name)
	assert.Positive(t, body.Products)
}

func TestLayout(t *testing.T) {
	_, res, err := client().Layout(context.Background(), podclient.LayoutRequest{
		Polygon:  square,
		Scale:    25000,
		PageSize: "Letter",
	})
	require.NoError(t, err)
	assert.Equal(t, "METERS", res.Units)
	assert.NotEmpty(t, res.Labels)
	assert.Len(t, res.Page, 1)
}

func TestValidate(t *testing.T) {
	_, rep, err := client().Validate(context.Background(), "integration", []byte("productTypes: []\n"), 0)
	require.NoError(t, err)
	assert.False(t, rep.Valid)
	assert.NotEmpty(t, rep.Errors)
}

func TestQueueCRUD(t *testing.T) {
	c := client()
	ctx := context.Background()

	_, p, err := c.AddToQueue(ctx, podclient.AddRequest{
		Product: "Dynamic Area",
		Custom:  true,
		Polygon: square,
	})
	require.NoError(t, err)
	assert.True(t, p.IsCustom)

	_, got, err := c.GetQueueItem(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)

	_, params, err := c.Export(ctx, p.ID, "Preview")
	require.NoError(t, err)
	assert.NotEmpty(t, params)

	_, names, err := c.ExportNames(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, names)

	_, err = c.DeleteQueueItem(ctx, p.ID)
	require.NoError(t, err)

	_, _, err = c.GetQueueItem(ctx, p.ID)
	var apiErr *podclient.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestQuery(t *testing.T) {
	_, body, err := client().Query(context.Background(), "SELECT 1 AS ok")
	require.NoError(t, err)
	assert.Equal(t, 1, body.Count)

	_, _, err = client().Query(context.Background(), "DROP TABLE layouts")
	var apiErr *podclient.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
}
