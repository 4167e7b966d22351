package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/lube-storefront/internal/middleware"
	"github.com/iliyamo/lube-storefront/internal/notify"
)

// SelectNotification runs the chosen action of a notification, which is how
// confirmation dialogs are answered, then returns to the page the visitor
// was on.
func (h *Handler) SelectNotification(c echo.Context) error {
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid action index")
	}
	v := middleware.Visitor(c)
	err = h.Hub.Select(c.Request().Context(), v.ID, c.Param("id"), idx)
	if errors.Is(err, notify.ErrNotFound) {
		h.Log.Debug("notification already gone", zap.String("id", c.Param("id")))
	}
	return h.redirect(c, back(c, "/"))
}

func (h *Handler) DismissNotification(c echo.Context) error {
	_ = h.Hub.Dismiss(middleware.Visitor(c).ID, c.Param("id"))
	return h.redirect(c, back(c, "/"))
}

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type wireAction struct {
	Index int    `json:"index"`
	Label string `json:"label"`
}

type wireEvent struct {
	Kind       notify.EventKind `json:"kind"`
	ID         string           `json:"id"`
	Message    string           `json:"message,omitempty"`
	Severity   notify.Severity  `json:"severity,omitempty"`
	DurationMs int64            `json:"durationMs,omitempty"`
	Actions    []wireAction     `json:"actions,omitempty"`
}

func toWire(ev notify.Event) wireEvent {
	n := ev.Notification
	w := wireEvent{Kind: ev.Kind, ID: n.ID}
	if ev.Kind == notify.EventRemoved {
		return w
	}
	w.Message, w.Severity, w.DurationMs = n.Message, n.Severity, n.Duration.Milliseconds()
	for i, a := range n.Actions {
		w.Actions = append(w.Actions, wireAction{Index: i, Label: a.Label})
	}
	return w
}

// NotificationStream pushes the visitor's notification events over a
// websocket. Pending notifications are sent first.
func (h *Handler) NotificationStream(c echo.Context) error {
	audience := middleware.Visitor(c).ID
	if audience == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "no visitor")
	}
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.Log.Info("websocket upgrade failed", zap.Error(err))
		return nil
	}
	defer conn.Close()

	events, cancel := h.Hub.Subscribe(audience)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(v any) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(v)
	}
	for _, n := range h.Hub.Pending(audience) {
		if err := write(toWire(notify.Event{Kind: notify.EventPublished, Notification: n})); err != nil {
			return nil
		}
	}

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-done:
			return nil
		case <-c.Request().Context().Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := write(toWire(ev)); err != nil {
				return nil
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		}
	}
}
