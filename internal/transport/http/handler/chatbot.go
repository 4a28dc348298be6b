package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"docuchat/internal/app"
	"docuchat/internal/pkg/pdfextract"
	"docuchat/internal/transport/http/response"
)

const (
	maxUploadFiles = 5
	maxFileSize    = 10 << 20 // 10 MB per file
)

type ChatbotHandler struct {
	chatbotService *app.ChatbotService
}

func NewChatbotHandler(chatbotService *app.ChatbotService) *ChatbotHandler {
	return &ChatbotHandler{chatbotService: chatbotService}
}

type AskRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Question  string `json:"question" binding:"required"`
}

// Upload accepts a multipart form with 1-5 "files" entries (PDF or TXT),
// extracts their text, and builds a new persistent session over it.
func (h *ChatbotHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid multipart form")
		return
	}
	files := form.File["files"]
	if len(files) < 1 || len(files) > maxUploadFiles {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest,
			fmt.Sprintf("must upload between 1 and %d files", maxUploadFiles))
		return
	}

	var text strings.Builder
	for _, file := range files {
		if file.Size > maxFileSize {
			response.Error(c, http.StatusRequestEntityTooLarge, response.CodeBadRequest,
				fmt.Sprintf("file %q is too large (max 10MB)", file.Filename))
			return
		}
		extracted, err := extractFileText(file)
		if err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
			return
		}
		text.WriteString(extracted)
	}

	sessionID, err := h.chatbotService.BuildSession(c.Request.Context(), text.String())
	if err != nil {
		h.writeError(c, err, "build session failed")
		return
	}

	response.OK(c, gin.H{
		"session_id": sessionID,
		"message":    fmt.Sprintf("%d files uploaded successfully.", len(files)),
	})
}

func extractFileText(file *multipart.FileHeader) (string, error) {
	f, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("read file %q failed", file.Filename)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(file.Filename)) {
	case ".pdf":
		text, err := pdfextract.ExtractText(f)
		if err != nil {
			return "", fmt.Errorf("error reading PDF file %q", file.Filename)
		}
		return text, nil
	case ".txt":
		raw, err := io.ReadAll(f)
		if err != nil {
			return "", fmt.Errorf("read file %q failed", file.Filename)
		}
		return string(raw), nil
	default:
		return "", fmt.Errorf("unsupported file type: %q. Only PDF and TXT are allowed", file.Filename)
	}
}

// Ask answers a question against a previously built session.
func (h *ChatbotHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.chatbotService.Answer(c.Request.Context(), req.SessionID, req.Question)
	if err != nil {
		h.writeError(c, err, "ask failed")
		return
	}
	response.OK(c, result)
}

// Sources returns the stored source chunks for a session.
func (h *ChatbotHandler) Sources(c *gin.Context) {
	sessionID := c.Param("id")
	sources, err := h.chatbotService.SessionSources(c.Request.Context(), sessionID)
	if err != nil {
		h.writeError(c, err, "load sources failed")
		return
	}
	response.OK(c, gin.H{"sources": sources})
}

// ListSessions returns all session ids (admin only).
func (h *ChatbotHandler) ListSessions(c *gin.Context) {
	ids, err := h.chatbotService.ListSessions()
	if err != nil {
		h.writeError(c, err, "list sessions failed")
		return
	}
	response.OK(c, gin.H{"sessions": ids})
}

func (h *ChatbotHandler) writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrValidation):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrNotFound):
		response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, "session not found")
	case errors.Is(err, app.ErrExternalService):
		response.Error(c, http.StatusBadGateway, response.CodeUpstreamFailure, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}
