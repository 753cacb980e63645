package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/peepybureau/bpi/internal/datastore"
	"github.com/peepybureau/bpi/internal/logger"
)

const (
	defaultHeartbeat = 30 * time.Second
	sseWriteTimeout  = 10 * time.Second
)

func (c *Controller) initStreamRoutes() {
	c.Group.GET("/stream", c.StreamChanges, c.rateLimiter(c.ratePerMinute(), "stream"))
}

// parseCollections reads ?collections=a,b. Empty means every collection.
func parseCollections(raw string) ([]datastore.Collection, error) {
	var out []datastore.Collection
	for part := range strings.SplitSeq(raw, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		col, ok := datastore.ParseCollection(name)
		if !ok {
			return nil, fmt.Errorf("unknown collection %q", name)
		}
		out = append(out, col)
	}
	return out, nil
}

// StreamChanges handles GET /stream, pushing committed writes as server-sent
// events until the client disconnects or the controller shuts down.
func (c *Controller) StreamChanges(ctx echo.Context) error {
	collections, err := parseCollections(ctx.QueryParam("collections"))
	if err != nil {
		return c.HandleError(ctx, err, err.Error(), http.StatusBadRequest)
	}

	c.wg.Add(1)
	defer c.wg.Done()

	reqCtx := ctx.Request().Context()
	sub := c.svc.Store().Subscribe(reqCtx, collections...)
	defer sub.Cancel()

	h := ctx.Response().Header()
	h.Set(echo.HeaderContentType, "text/event-stream")
	h.Set(echo.HeaderCacheControl, "no-cache")
	h.Set(echo.HeaderConnection, "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	ctx.Response().WriteHeader(http.StatusOK)

	c.metrics.SSEConnected()
	defer c.metrics.SSEDisconnected()

	clientID := generateCorrelationID()
	log := GetLogger().With(logger.String("client_id", clientID), logger.String("ip", ctx.RealIP()))
	log.Debug("change stream connected", logger.Int("active", int(c.metrics.ActiveSSEConnections())))
	defer log.Debug("change stream disconnected", logger.Int64("dropped", int64(sub.Dropped())))

	names := make([]string, len(collections))
	for i, col := range collections {
		names[i] = string(col)
	}
	if err := c.sendSSEMessage(ctx, "connected", map[string]any{
		"clientId":    clientID,
		"collections": names,
	}); err != nil {
		c.metrics.SSEError("write")
		return nil
	}

	ticker := time.NewTicker(c.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if err := c.sendSSEMessage(ctx, "change", ev); err != nil {
				c.metrics.SSEError("write")
				log.Debug("change stream write failed", logger.Error(err))
				return nil
			}
			c.metrics.SSEMessage(string(ev.Collection))

		case <-ticker.C:
			if err := c.sendSSEMessage(ctx, "heartbeat", map[string]any{
				"timestamp": time.Now().Unix(),
			}); err != nil {
				c.metrics.SSEError("heartbeat")
				return nil
			}

		case <-reqCtx.Done():
			return nil

		case <-c.ctx.Done():
			return nil
		}
	}
}

// sendSSEMessage writes one event and flushes it.
func (c *Controller) sendSSEMessage(ctx echo.Context, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal SSE data: %w", err)
	}

	rc := http.NewResponseController(ctx.Response().Writer)
	// not every writer supports deadlines; recorders in tests do not
	_ = rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout))

	if _, err := fmt.Fprintf(ctx.Response(), "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return fmt.Errorf("failed to write SSE message: %w", err)
	}
	ctx.Response().Flush()
	return nil
}
