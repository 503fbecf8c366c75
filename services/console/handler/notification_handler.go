package handler

import (
	"net/http"

	"auction-console/internal/models"
	"auction-console/utils"

	"github.com/gin-gonic/gin"
)

// ListNotificationsHandler handles GET /notifications
func (h *Handler) ListNotificationsHandler(c *gin.Context) {
	utils.JSONResponse(c, http.StatusOK, h.notes.List(), "notifications")
}

// DismissNotificationHandler handles DELETE /notifications/:id
// Dismissing an unknown or expired notification is not an error.
func (h *Handler) DismissNotificationHandler(c *gin.Context) {
	h.notes.Dismiss(c.Param("id"))
	c.Status(http.StatusNoContent)
}

// ResetHandler handles POST /reset, the way out of the recovery view.
func (h *Handler) ResetHandler(c *gin.Context) {
	h.views.CloseAll()
	h.notes.Show("Console reset", models.SeverityInfo)
	utils.Info("ResetHandler: live views closed", nil)
	utils.Redirect(c, "/")
}

// RecoveryHandler renders the generic recovery view after a panic in a view.
func (h *Handler) RecoveryHandler(c *gin.Context, recovered any) {
	utils.Error("RecoveryHandler: view panicked", map[string]any{"panic": recovered, "path": c.Request.URL.Path})
	h.notes.Show("Something went wrong", models.SeverityError)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"status":  http.StatusInternalServerError,
		"message": "Something went wrong",
		"data":    gin.H{"reset": gin.H{"method": http.MethodPost, "href": "/reset"}},
	})
}
