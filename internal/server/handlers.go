package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"partnerguide/internal/guide"
)

// GuideHandler exposes the guide generation API.
type GuideHandler struct {
	manager    *RunManager
	strategist *guide.Strategist
}

func (h *GuideHandler) Register(g *echo.Group) {
	g.POST("/guides", h.createGuide)
	g.GET("/guides/:id", h.getGuide)
	g.GET("/guides/:id/events", h.streamEvents)
	g.POST("/guides/:id/cancel", h.cancelGuide)
	g.POST("/categories/suggest", h.suggestCategories)
}

// createGuide starts a run in the background and returns its ID. Results
// arrive over the event stream or through polling the run resource.
func (h *GuideHandler) createGuide(c echo.Context) error {
	var req guide.SearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.ClientName) == "" || strings.TrimSpace(req.Address) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "client_name and address are required")
	}
	if req.TargetCount <= 0 || req.RadiusKm <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "target_count and radius_km must be positive")
	}

	run := h.manager.Start(req)
	return c.JSON(http.StatusAccepted, map[string]string{"id": run.ID})
}

// getGuide reports the run's current state, and the result once terminal.
func (h *GuideHandler) getGuide(c echo.Context) error {
	run, ok := h.manager.Get(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "run not found")
	}
	result, done, runErr := run.snapshot()
	if !done {
		return c.JSON(http.StatusOK, map[string]interface{}{"id": run.ID, "status": "running"})
	}
	body := map[string]interface{}{"id": run.ID, "status": "finished", "result": result}
	if runErr != nil {
		body["error"] = runErr.Error()
	}
	return c.JSON(http.StatusOK, body)
}

// streamEvents replays the run's buffered events and then streams live ones
// until the run ends or the client disconnects.
func (h *GuideHandler) streamEvents(c echo.Context) error {
	run, ok := h.manager.Get(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "run not found")
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)
	flusher, ok := resp.Writer.(http.Flusher)
	if !ok {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "streaming unsupported")
	}

	send := func(ev Event) error {
		payload, err := json.Marshal(ev.Data)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(resp.Writer, "event: %s\ndata: %s\n\n", ev.Type, payload); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	replay, ch := run.subscribe()
	if ch != nil {
		defer run.unsubscribe(ch)
	}
	for _, ev := range replay {
		if err := send(ev); err != nil {
			return nil
		}
	}
	if ch == nil {
		return nil
	}

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, open := <-ch:
			if !open {
				return nil
			}
			if err := send(ev); err != nil {
				return nil
			}
		}
	}
}

// cancelGuide requests cancellation. The run finishes normally with the
// partners found so far; the terminal event still arrives on the stream.
func (h *GuideHandler) cancelGuide(c echo.Context) error {
	if !h.manager.Cancel(c.Param("id")) {
		return echo.NewHTTPError(http.StatusNotFound, "run not found")
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "cancelling"})
}

// suggestCategories returns free-text partner-category ideas for an
// activity description. Best effort; an empty list is a valid answer.
func (h *GuideHandler) suggestCategories(c echo.Context) error {
	var req struct {
		Description string `json:"description"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Description) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "description is required")
	}
	suggestions := h.strategist.Suggest(c.Request().Context(), req.Description)
	if suggestions == nil {
		suggestions = []string{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"suggestions": suggestions})
}
