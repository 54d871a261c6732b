package handlers

import (
	"strings"

	"setoran-pa/internal/core/domain"
	"setoran-pa/internal/core/services"
	"setoran-pa/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles the lecturer session endpoints
type AuthHandler struct {
	session  *services.SessionService
	deposits *services.DepositService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(session *services.SessionService, deposits *services.DepositService) *AuthHandler {
	return &AuthHandler{
		session:  session,
		deposits: deposits,
	}
}

// LoginRequest represents login request body
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles lecturer login
// @Summary Login lecturer
// @Description Exchange username and password for a stored token triple
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body LoginRequest true "Login credentials"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 502 {object} response.Response
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	state := h.session.Login(c.UserContext(), strings.TrimSpace(req.Username), req.Password)
	return response.State(c, "login successful", state)
}

// Logout forgets the stored credentials and every cached view
// @Summary Logout lecturer
// @Tags Auth
// @Produce json
// @Success 200 {object} response.Response
// @Failure 503 {object} response.Response
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.session.Logout(c.UserContext()); err != nil {
		return response.FromError(c, err)
	}
	h.deposits.Clear()
	return response.Success(c, "logged out", nil)
}

// Refresh exchanges the stored refresh token for a new token triple
// @Summary Refresh session
// @Tags Auth
// @Produce json
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if !h.session.Refresh(ctx) {
		return response.FromError(c, domain.ErrRefreshFailed)
	}
	profile, err := h.session.Profile(ctx)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "session refreshed", profile)
}

// Me returns the profile decoded from the stored tokens
// @Summary Current lecturer
// @Tags Auth
// @Produce json
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	profile, err := h.session.Profile(c.UserContext())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "", profile)
}

// State returns the login operation state
// @Summary Login state
// @Tags Auth
// @Produce json
// @Success 200 {object} response.Response
// @Router /auth/state [get]
func (h *AuthHandler) State(c *fiber.Ctx) error {
	return response.Success(c, "", h.session.LoginState().Current())
}

// ResetState returns a finished login state to idle
// @Summary Reset login state
// @Tags Auth
// @Produce json
// @Success 200 {object} response.Response
// @Router /auth/state/reset [post]
func (h *AuthHandler) ResetState(c *fiber.Ctx) error {
	stream := h.session.LoginState()
	return response.Success(c, "", fiber.Map{
		"reset": stream.Reset(),
		"state": stream.Current(),
	})
}
