// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"

	"enstp-advisor-go/internal/middleware"
	"enstp-advisor-go/internal/repository"
	"enstp-advisor-go/internal/service"
	"enstp-advisor-go/pkg/log"
	"enstp-advisor-go/pkg/token"

	"github.com/gin-gonic/gin"
)

// ConversationHandler 处理与咨询会话相关的 REST 请求。
type ConversationHandler struct {
	service service.ChatService
	tokens  *token.SessionManager
}

// NewConversationHandler 创建一个新的 ConversationHandler。
func NewConversationHandler(service service.ChatService, tokens *token.SessionManager) *ConversationHandler {
	return &ConversationHandler{service: service, tokens: tokens}
}

// SubmitTurnRequest 是提交一轮对话的请求体。
type SubmitTurnRequest struct {
	Text string `json:"text"`
}

// CreateSession 创建新会话并签发会话令牌。
func (h *ConversationHandler) CreateSession(c *gin.Context) {
	snap, err := h.service.StartSession(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	tok, err := h.tokens.Generate(snap.SessionID)
	if err != nil {
		log.Error("CreateSession: failed to sign session token", err)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data": gin.H{
			"sessionId": snap.SessionID,
			"token":     tok,
			"snapshot":  snap,
		},
	})
}

// GetCurrent 返回当前会话的快照。
func (h *ConversationHandler) GetCurrent(c *gin.Context) {
	snap, err := h.service.Snapshot(c.Request.Context(), c.GetString(middleware.SessionIDKey))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": snap})
}

// SubmitTurn 提交一条学生消息，阻塞直到模型回复或失败提示写入对话。
func (h *ConversationHandler) SubmitTurn(c *gin.Context) {
	var req SubmitTurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("SubmitTurn: invalid request payload, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "invalid request payload", "data": nil})
		return
	}

	res, err := h.service.SubmitTurn(c.Request.Context(), c.GetString(middleware.SessionIDKey), req.Text)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": res})
}

// Clear 把会话重置为问候语。
func (h *ConversationHandler) Clear(c *gin.Context) {
	snap, err := h.service.ClearConversation(c.Request.Context(), c.GetString(middleware.SessionIDKey))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": snap})
}

// statusFor 把业务错误映射为 HTTP 状态码。
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrEmptyInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrTurnInFlight), errors.Is(err, repository.ErrTurnLockLost):
		return http.StatusConflict
	case errors.Is(err, repository.ErrSessionNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Errorw("Request failed", "path", c.FullPath(), "error", err)
		message = "internal server error"
	}
	c.JSON(status, gin.H{"code": status, "message": message, "data": nil})
}
