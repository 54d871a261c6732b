package handlers

import (
	"setoran-pa/internal/core/domain"
	"setoran-pa/internal/core/services"
	"setoran-pa/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// SelectionHandler manages the components picked for the next submit
type SelectionHandler struct {
	deposits *services.DepositService
}

// NewSelectionHandler creates a new selection handler
func NewSelectionHandler(deposits *services.DepositService) *SelectionHandler {
	return &SelectionHandler{deposits: deposits}
}

// List returns the pending selection
// @Summary Pending selection
// @Tags Selection
// @Produce json
// @Param nim path string true "Student NIM"
// @Success 200 {object} response.Response
// @Router /students/{nim}/selection [get]
func (h *SelectionHandler) List(c *fiber.Ctx) error {
	return response.Success(c, "", h.deposits.Selection().Items(c.Params("nim")))
}

// Add selects a component
// @Summary Select component
// @Tags Selection
// @Accept json
// @Produce json
// @Param nim path string true "Student NIM"
// @Param body body domain.SubmitItem true "Component"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /students/{nim}/selection [post]
func (h *SelectionHandler) Add(c *fiber.Ctx) error {
	var item domain.SubmitItem
	if err := c.BodyParser(&item); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	nim := c.Params("nim")
	if err := h.deposits.Select(nim, item); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "component selected", h.deposits.Selection().Items(nim))
}

// Remove unselects one component
// @Summary Unselect component
// @Tags Selection
// @Produce json
// @Param nim path string true "Student NIM"
// @Param componentId path string true "Component id"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /students/{nim}/selection/{componentId} [delete]
func (h *SelectionHandler) Remove(c *fiber.Ctx) error {
	nim := c.Params("nim")
	if !h.deposits.Selection().Remove(nim, c.Params("componentId")) {
		return response.NotFound(c, "component is not selected")
	}
	return response.Success(c, "component unselected", h.deposits.Selection().Items(nim))
}

// Clear drops the whole selection
// @Summary Clear selection
// @Tags Selection
// @Produce json
// @Param nim path string true "Student NIM"
// @Success 200 {object} response.Response
// @Router /students/{nim}/selection [delete]
func (h *SelectionHandler) Clear(c *fiber.Ctx) error {
	h.deposits.Selection().Clear(c.Params("nim"))
	return response.Success(c, "selection cleared", []domain.SubmitItem{})
}

// Submit sends the pending selection for validation
// @Summary Submit selection
// @Tags Selection
// @Produce json
// @Param nim path string true "Student NIM"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 502 {object} response.Response
// @Router /students/{nim}/selection/submit [post]
func (h *SelectionHandler) Submit(c *fiber.Ctx) error {
	state := h.deposits.SubmitSelection(c.UserContext(), c.Params("nim"))
	return response.State(c, "deposits submitted", state)
}
