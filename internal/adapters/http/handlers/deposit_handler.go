package handlers

import (
	"setoran-pa/internal/core/domain"
	"setoran-pa/internal/core/services"
	"setoran-pa/internal/pkg/pagination"
	"setoran-pa/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// DepositHandler handles the roster, student detail and deposit mutations
type DepositHandler struct {
	deposits *services.DepositService
}

// NewDepositHandler creates a new deposit handler
func NewDepositHandler(deposits *services.DepositService) *DepositHandler {
	return &DepositHandler{deposits: deposits}
}

// SubmitRequest represents the submit body
type SubmitRequest struct {
	Components []domain.SubmitItem `json:"components"`
}

// CancelRequest carries the optional component fields of a cancel. They are
// filled from the last fetched detail when omitted.
type CancelRequest struct {
	ComponentID string `json:"component_id"`
	Name        string `json:"name"`
}

// RosterPage is one page of the advisor's roster
type RosterPage struct {
	Advisor  domain.Lecturer        `json:"advisor"`
	Summary  []domain.CohortSummary `json:"summary"`
	Students []domain.StudentRecord `json:"students"`
	Meta     *pagination.Meta       `json:"meta"`
}

// Roster fetches the advisor's roster and pages the student list
// @Summary Supervised students
// @Tags Deposits
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 503 {object} response.Response
// @Router /roster [get]
func (h *DepositHandler) Roster(c *fiber.Ctx) error {
	state := h.deposits.FetchRoster(c.UserContext())
	if state.Status != domain.StatusSuccess {
		return response.State(c, "", state)
	}

	params := pagination.GetParams(c)
	roster := state.Data
	return response.Success(c, "", RosterPage{
		Advisor:  roster.Advisor,
		Summary:  roster.Summary,
		Students: pagination.Slice(roster.Students, params),
		Meta:     pagination.GetMeta(params, int64(len(roster.Students))),
	})
}

// Student fetches one student's deposit detail
// @Summary Student deposit detail
// @Tags Deposits
// @Produce json
// @Param nim path string true "Student NIM"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /students/{nim} [get]
func (h *DepositHandler) Student(c *fiber.Ctx) error {
	return response.State(c, "", h.deposits.FetchDetail(c.UserContext(), c.Params("nim")))
}

// Submit validates components for a student
// @Summary Submit deposits
// @Tags Deposits
// @Accept json
// @Produce json
// @Param nim path string true "Student NIM"
// @Param body body SubmitRequest true "Components to validate"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 502 {object} response.Response
// @Router /students/{nim}/deposits [post]
func (h *DepositHandler) Submit(c *fiber.Ctx) error {
	var req SubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	state := h.deposits.Submit(c.UserContext(), c.Params("nim"), req.Components)
	return response.State(c, "deposits submitted", state)
}

// Cancel deletes a validation
// @Summary Cancel deposit
// @Tags Deposits
// @Accept json
// @Produce json
// @Param nim path string true "Student NIM"
// @Param depositId path string true "Deposit id"
// @Param body body CancelRequest false "Component of the deposit"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 502 {object} response.Response
// @Router /students/{nim}/deposits/{depositId} [delete]
func (h *DepositHandler) Cancel(c *fiber.Ctx) error {
	var req CancelRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.BadRequest(c, "invalid request body")
		}
	}
	item := domain.CancelItem{
		DepositID:   c.Params("depositId"),
		ComponentID: req.ComponentID,
		Name:        req.Name,
	}
	state := h.deposits.Cancel(c.UserContext(), c.Params("nim"), item)
	return response.State(c, "deposit cancelled", state)
}
