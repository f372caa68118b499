package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-pod/internal/humastar"
	"github.com/joeblew999/plat-pod/internal/service"
	"github.com/joeblew999/plat-pod/internal/templates"
	"github.com/joeblew999/plat-pod/internal/validate"
)

// EventHandler streams bus events to Datastar clients: validation messages
// as they are reported, run summaries, and queue changes. With a renderer,
// finished reports are patched into #validation and the queue into #queue.
type EventHandler struct {
	bus      *service.EventBus
	svc      *Services
	renderer *templates.Renderer
}

// NewEventHandler creates the event stream handler. renderer may be nil.
func NewEventHandler(bus *service.EventBus, svc *Services, renderer *templates.Renderer) *EventHandler {
	return &EventHandler{bus: bus, svc: svc, renderer: renderer}
}

func (h *EventHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/events", h.Events, huma.OperationTags("events"))
}

type EventsInput struct {
	Resource []string `query:"resource" doc:"Resources to follow; all when empty"`
}

func (h *EventHandler) Events(ctx context.Context, input *EventsInput) (*huma.StreamResponse, error) {
	return humastar.Stream(func(sse humastar.SSE) {
		ch := h.bus.Subscribe(input.Resource...)
		defer h.bus.Unsubscribe(ch)

		sse.Signals(map[string]any{"connected": true})
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-ch:
				h.send(sse, ev)
			}
		}
	}), nil
}

func (h *EventHandler) send(sse humastar.SSE, ev service.Event) {
	switch ev.Resource {
	case service.ResourceValidation:
		switch data := ev.Data.(type) {
		case validate.Error:
			sse.Signals(map[string]any{
				"validationRun":      ev.ID,
				"validationMessage":  data.Message,
				"validationSeverity": data.Severity.String(),
			})
		case service.Report:
			sse.Signals(map[string]any{
				"validationRun":      ev.ID,
				"validationValid":    data.Valid,
				"validationFatal":    data.Fatal,
				"validationWarnings": data.Warnings,
				"validationDone":     data.FieldChecksDone,
			})
			h.patch(sse, "validation-report", data, "#validation")
		}
	case service.ResourceQueue:
		if h.svc != nil && h.svc.Queue != nil {
			sse.Signals(map[string]any{"queueLength": h.svc.Queue.Len()})
			h.patch(sse, "queue", h.svc.Queue.List(), "#queue")
		}
	}
	sse.DispatchCustomEvent("resource-changed", map[string]any{
		"resource": ev.Resource,
		"action":   ev.Action,
		"id":       ev.ID,
	})
}

func (h *EventHandler) patch(sse humastar.SSE, name string, data any, selector string) {
	if h.renderer == nil {
		return
	}
	html, err := h.renderer.Render(name, data)
	if err != nil {
		sse.Error(err.Error())
		return
	}
	sse.Patch(html, selector)
}
