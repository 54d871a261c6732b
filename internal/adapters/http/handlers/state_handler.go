package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"setoran-pa/internal/core/domain"
	"setoran-pa/internal/core/services"
	"setoran-pa/internal/pkg/logger"
	"setoran-pa/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const watchHeartbeat = 30 * time.Second

// StateHandler exposes the roster, detail and mutation streams
type StateHandler struct {
	deposits *services.DepositService
}

// NewStateHandler creates a new state handler
func NewStateHandler(deposits *services.DepositService) *StateHandler {
	return &StateHandler{deposits: deposits}
}

// current returns the state of a named stream, or false for unknown names
func (h *StateHandler) current(name string) (interface{}, bool) {
	switch name {
	case services.StreamRoster:
		return h.deposits.Roster().Current(), true
	case services.StreamDetail:
		return h.deposits.Detail().Current(), true
	case services.StreamMutation:
		return h.deposits.Mutation().Current(), true
	}
	return nil, false
}

// Get returns a stream's current state
// @Summary Stream state
// @Tags State
// @Produce json
// @Param stream path string true "roster, detail or mutation"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /state/{stream} [get]
func (h *StateHandler) Get(c *fiber.Ctx) error {
	state, ok := h.current(c.Params("stream"))
	if !ok {
		return response.NotFound(c, "unknown stream")
	}
	return response.Success(c, "", state)
}

// Reset returns a finished stream to idle. Loading streams are left alone.
// @Summary Reset stream state
// @Tags State
// @Produce json
// @Param stream path string true "roster, detail or mutation"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /state/{stream}/reset [post]
func (h *StateHandler) Reset(c *fiber.Ctx) error {
	name := c.Params("stream")
	if _, ok := h.current(name); !ok {
		return response.NotFound(c, "unknown stream")
	}
	reset := h.deposits.Reset(name)
	state, _ := h.current(name)
	return response.Success(c, "", fiber.Map{
		"reset": reset,
		"state": state,
	})
}

// Watch streams a stream's transitions as server-sent events. The current
// state is sent first; the response ends after the next success or error.
// @Summary Watch stream state
// @Tags State
// @Produce text/event-stream
// @Param stream path string true "roster, detail or mutation"
// @Success 200 {string} string "event stream"
// @Failure 404 {object} response.Response
// @Router /state/{stream}/watch [get]
func (h *StateHandler) Watch(c *fiber.Ctx) error {
	switch c.Params("stream") {
	case services.StreamRoster:
		return watch(c, h.deposits.Roster())
	case services.StreamDetail:
		return watch(c, h.deposits.Detail())
	case services.StreamMutation:
		return watch(c, h.deposits.Mutation())
	}
	return response.NotFound(c, "unknown stream")
}

func watch[T any](c *fiber.Ctx, stream *domain.Stream[T]) error {
	updates, cancel := stream.Subscribe()
	state := stream.Current()
	log := logger.For(c.UserContext(), "watch").WithField("stream", stream.Name())

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("Transfer-Encoding", "chunked")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		heartbeat := time.NewTicker(watchHeartbeat)
		defer heartbeat.Stop()

		send := true
		for {
			if send {
				if err := writeStateEvent(w, stream.Name(), state); err != nil {
					log.Debug("📡 Watcher disconnected")
					return
				}
				if state.Terminal() {
					return
				}
			}

			select {
			case next, ok := <-updates:
				if !ok {
					return
				}
				state, send = next, true
			case <-heartbeat.C:
				send = false
				fmt.Fprintf(w, ": heartbeat\n\n")
				if err := w.Flush(); err != nil {
					log.Debug("📡 Watcher disconnected")
					return
				}
			}
		}
	})
	return nil
}

func writeStateEvent[T any](w *bufio.Writer, name string, state domain.OperationState[T]) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return w.Flush()
}
