package templates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-pod/internal/pageextent"
	"github.com/joeblew999/plat-pod/internal/product"
	"github.com/joeblew999/plat-pod/internal/service"
	"github.com/joeblew999/plat-pod/internal/units"
	"github.com/joeblew999/plat-pod/internal/validate"
)

func TestRenderValidationReport(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	html, err := r.Render("validation-report", service.Report{
		ID:     "run-1",
		Source: "podconfig.yaml",
		Errors: []validate.Error{
			{Message: "<b>Domain</b> not defined", Severity: validate.Fatal, Kind: "domainNotDefined"},
		},
		Fatal:     1,
		StartedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.Contains(t, html, `class="report invalid"`)
	assert.Contains(t, html, `<li class="error" data-kind="domainNotDefined">`)
	assert.Contains(t, html, "&lt;b&gt;Domain&lt;/b&gt; not defined")
	assert.Contains(t, html, "(field checks running)")
}

func TestRenderQueue(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	html, err := r.Render("queue", []*product.Product{{
		Name:   "Fixed 25K_0",
		Type:   "Fixed",
		Layout: &pageextent.Result{Units: units.Meters, Width: 1000, Height: 2000, ReferenceScale: 25000},
	}})
	require.NoError(t, err)
	assert.Contains(t, html, "Fixed 25K_0")
	assert.Contains(t, html, "1000.00 x 2000.00 METERS")
	assert.Contains(t, html, "1:25000")
}

func TestRenderUnknown(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	_, err = r.Render("missing", nil)
	assert.Error(t, err)
}
