package handler

import (
	"errors"
	"net/http"

	"auction-console/internal/auctionerrors"
	"auction-console/internal/models"
	"auction-console/services/console/helpers"
	"auction-console/utils"

	"github.com/gin-gonic/gin"
)

// ShowLoginHandler handles GET /login
func (h *Handler) ShowLoginHandler(c *gin.Context) {
	utils.JSONResponse(c, http.StatusOK, helpers.LoginForm, "login")
}

// ShowRegisterHandler handles GET /register
func (h *Handler) ShowRegisterHandler(c *gin.Context) {
	utils.JSONResponse(c, http.StatusOK, helpers.RegisterForm, "register")
}

// LoginHandler handles POST /login
func (h *Handler) LoginHandler(c *gin.Context) {
	var req helpers.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "LoginHandler", err)
		return
	}

	prev, hadSession := h.store.Current()
	sess, err := h.store.Login(c.Request.Context(), models.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		utils.Warn("LoginHandler: login failed", map[string]any{"email": req.Email, "error": err.Error()})
		// a rejected login is a form error, not an expired session
		if errors.Is(err, auctionerrors.ErrAuth) {
			h.notes.Show("Invalid email or password", models.SeverityError)
			utils.JSONError(c, http.StatusUnauthorized, err, "invalid email or password")
			return
		}
		status, message := helpers.MapErrorToView(err)
		h.notes.Show(message, models.SeverityError)
		utils.JSONError(c, status, err, message)
		return
	}
	h.closeViewsOnSwitch(prev, hadSession, sess)

	h.notes.Show("Welcome back, "+sess.Username, models.SeveritySuccess)
	helpers.LogSuccess("LoginHandler", "logged in", map[string]any{"username": sess.Username, "role": sess.Role})
	utils.Redirect(c, "/auctions")
}

// RegisterHandler handles POST /register
func (h *Handler) RegisterHandler(c *gin.Context) {
	var req helpers.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "RegisterHandler", err)
		return
	}

	role := models.RoleBidder
	if req.Role != "" {
		role, _ = models.ParseRole(req.Role)
	}
	reg := models.Registration{Username: req.Username, Email: req.Email, Password: req.Password, Role: role}

	prev, hadSession := h.store.Current()
	sess, err := h.store.Register(c.Request.Context(), reg)
	if err != nil {
		utils.Warn("RegisterHandler: registration failed", map[string]any{"username": req.Username, "error": err.Error()})
		status, message := helpers.MapErrorToView(err)
		if status == http.StatusUnauthorized {
			message = "Registration failed"
		}
		h.notes.Show(message, models.SeverityError)
		utils.JSONError(c, status, err, message)
		return
	}
	h.closeViewsOnSwitch(prev, hadSession, sess)

	h.notes.Show("Account created, welcome "+sess.Username, models.SeveritySuccess)
	helpers.LogSuccess("RegisterHandler", "registered", map[string]any{"username": sess.Username, "role": sess.Role})
	utils.Redirect(c, "/auctions")
}

// LogoutHandler handles POST /logout
func (h *Handler) LogoutHandler(c *gin.Context) {
	h.endSession(c.Request.Context())
	h.notes.Show("Logged out", models.SeverityInfo)
	helpers.LogSuccess("LogoutHandler", "logged out", nil)
	utils.Redirect(c, "/login")
}

// closeViewsOnSwitch unmounts every live view when a new login replaces a
// session of another user, so no channel keeps running on the old token.
func (h *Handler) closeViewsOnSwitch(prev models.Session, hadSession bool, next models.Session) {
	if !hadSession || (prev.Token == next.Token && prev.Username == next.Username) {
		return
	}
	utils.Info("closeViewsOnSwitch: session replaced, live views closed", map[string]any{"from": prev.Username, "to": next.Username})
	h.views.CloseAll()
}
