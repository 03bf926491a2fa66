package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/events"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/pkg/logger"
)

// Events streams the caller's events as server-sent events. A connection
// listens on the caller's own user scope and, for tenant users, on the
// tenant scope. Comment lines keep idle proxies from closing the stream.
func (h *Handler) Events(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}

	scopes := []events.Scope{events.UserScope(actor.UserID)}
	if actor.TenantID != nil {
		scopes = append(scopes, events.TenantScope(*actor.TenantID))
	}
	sub := h.hub.Subscribe(scopes...)
	defer sub.Close()

	log := logger.FromEcho(c)
	log.Info("Event stream opened", zap.Int("scopes", len(scopes)))
	defer log.Info("Event stream closed")

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.Header().Set("X-Accel-Buffering", "no")
	res.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(res, ": connected\n\n"); err != nil {
		return nil
	}
	res.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := fmt.Fprint(res, ": ping\n\n"); err != nil {
				return nil
			}
			res.Flush()
		case ev, ok := <-sub.C:
			if !ok {
				return nil
			}
			if err := writeEvent(res, ev); err != nil {
				log.Warn("Failed to write event", zap.String("type", ev.Type), zap.Error(err))
				return nil
			}
			res.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, ev events.Event) error {
	data, err := json.Marshal(ev.Payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
	return err
}
