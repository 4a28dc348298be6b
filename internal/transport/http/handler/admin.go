package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"docuchat/internal/repository"
	"docuchat/internal/transport/http/response"
)

// AdminHandler exposes the audit trail behind JWT auth.
type AdminHandler struct {
	queryLogRepo *repository.QueryLogRepository
}

func NewAdminHandler(queryLogRepo *repository.QueryLogRepository) *AdminHandler {
	return &AdminHandler{queryLogRepo: queryLogRepo}
}

// QueryLogs returns the questions asked against one session, oldest first.
func (h *AdminHandler) QueryLogs(c *gin.Context) {
	sessionID := c.Param("id")
	entries, err := h.queryLogRepo.ListBySessionID(sessionID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list query logs failed")
		return
	}
	response.OK(c, gin.H{"logs": entries})
}
