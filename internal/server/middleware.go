package server

import (
	"context"
	"time"

	"auction-console/internal/models"
	"auction-console/utils"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
)

// RequestLoggerMiddleware logs incoming requests with timing
func RequestLoggerMiddleware(c *gin.Context) {
	start := time.Now()

	c.Next() // process request

	utils.Info("HTTP Request", map[string]any{
		"method":  c.Request.Method,
		"path":    c.Request.URL.Path,
		"status":  c.Writer.Status(),
		"latency": time.Since(start).String(),
	})
}

// SessionGate is the part of the session store the route gates read.
type SessionGate interface {
	IsAuthenticated() bool
	Expired(now time.Time) bool
	HasAnyRole(roles ...models.Role) bool
	Logout(ctx context.Context)
}

// LiveCloser closes every mounted live view.
type LiveCloser interface {
	CloseAll()
}

// Notifier shows operator-facing messages.
type Notifier interface {
	Show(message string, severity models.Severity) string
}

// Gate decides whether a route may render before its handler runs.
type Gate struct {
	sessions SessionGate
	views    LiveCloser
	notes    Notifier
	clock    clockwork.Clock
}

func NewGate(sessions SessionGate, views LiveCloser, notes Notifier, clock clockwork.Clock) *Gate {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Gate{sessions: sessions, views: views, notes: notes, clock: clock}
}

// RequireAuth sends anonymous operators to /login. An expired token is logged
// out first so nothing downstream sends it.
func (g *Gate) RequireAuth(c *gin.Context) {
	if !g.sessions.IsAuthenticated() {
		utils.Debug("gate: not authenticated", map[string]any{"path": c.Request.URL.Path})
		utils.Redirect(c, "/login")
		return
	}
	if g.sessions.Expired(g.clock.Now()) {
		utils.Warn("gate: session expired", map[string]any{"path": c.Request.URL.Path})
		g.views.CloseAll()
		g.sessions.Logout(c.Request.Context())
		g.notes.Show("Your session has expired, please log in again", models.SeverityWarning)
		utils.Redirect(c, "/login")
		return
	}
	c.Next()
}

// RequireRoles lets only the given roles through; everyone else lands on
// /auctions. It must run after RequireAuth.
func (g *Gate) RequireRoles(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !g.sessions.HasAnyRole(roles...) {
			utils.Warn("gate: role not permitted", map[string]any{"path": c.Request.URL.Path, "roles": roles})
			g.notes.Show("You are not allowed to view that page", models.SeverityWarning)
			utils.Redirect(c, "/auctions")
			return
		}
		c.Next()
	}
}

// RedirectAuthenticated keeps a logged-in operator away from the login and
// register forms.
func (g *Gate) RedirectAuthenticated(c *gin.Context) {
	if g.sessions.IsAuthenticated() && !g.sessions.Expired(g.clock.Now()) {
		utils.Redirect(c, "/auctions")
		return
	}
	c.Next()
}
