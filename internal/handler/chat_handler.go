package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"enstp-advisor-go/internal/model"
	"enstp-advisor-go/internal/service"
	"enstp-advisor-go/pkg/log"
	"enstp-advisor-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var (
	upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true // 允许所有来源
		},
	}
)

// 客户端可发送的指令类型，纯文本等价于 message。
const (
	inboundMessage = "message"
	inboundClear   = "clear"
)

type inboundFrame struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// outboundFrame 是服务端推送的事件，type 为 snapshot 或 error。
type outboundFrame struct {
	Type      string                 `json:"type"`
	Snapshot  *model.SessionSnapshot `json:"snapshot,omitempty"`
	Reply     *model.Turn            `json:"reply,omitempty"`
	Failure   service.FailureKind    `json:"failure,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

// ChatHandler 负责处理 WebSocket 聊天连接。
type ChatHandler struct {
	chatService service.ChatService
	tokens      *token.SessionManager
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(chatService service.ChatService, tokens *token.SessionManager) *ChatHandler {
	return &ChatHandler{chatService: chatService, tokens: tokens}
}

// Handle 处理一个传入的 WebSocket 连接。
// 同一连接上的消息按顺序处理，上一轮完成前不会读取下一条。
func (h *ChatHandler) Handle(c *gin.Context) {
	sessionID, err := h.tokens.Verify(c.Param("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "invalid or expired session token", "data": nil})
		return
	}

	ctx := c.Request.Context()
	snap, err := h.chatService.Snapshot(ctx, sessionID)
	if err != nil {
		writeError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	log.Infow("WebSocket connection established", "session_id", sessionID)
	if err := writeFrame(conn, outboundFrame{Type: "snapshot", Snapshot: &snap}); err != nil {
		return
	}

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warnf("从 WebSocket 读取消息失败: %v", err)
			}
			return
		}

		frame := parseInbound(message)
		var out outboundFrame
		switch frame.Type {
		case inboundClear:
			snap, err := h.chatService.ClearConversation(ctx, sessionID)
			if err != nil {
				out = errorFrame(err)
				break
			}
			out = outboundFrame{Type: "snapshot", Snapshot: &snap}
		case inboundMessage:
			res, err := h.chatService.SubmitTurn(ctx, sessionID, frame.Text)
			if err != nil {
				out = errorFrame(err)
				break
			}
			out = outboundFrame{Type: "snapshot", Snapshot: &res.Snapshot, Reply: &res.Reply, Failure: res.Failure}
		default:
			out = outboundFrame{Type: "error", Message: "unsupported message type: " + frame.Type}
		}

		if err := writeFrame(conn, out); err != nil {
			log.Warnf("写入 WebSocket 消息失败: %v", err)
			return
		}
	}
}

// parseInbound 解析 JSON 指令；不是 JSON 对象的消息按纯文本处理。
func parseInbound(message []byte) inboundFrame {
	trimmed := strings.TrimSpace(string(message))
	if strings.HasPrefix(trimmed, "{") {
		var f inboundFrame
		if err := json.Unmarshal([]byte(trimmed), &f); err == nil && f.Type != "" {
			return f
		}
	}
	return inboundFrame{Type: inboundMessage, Text: string(message)}
}

func errorFrame(err error) outboundFrame {
	msg := err.Error()
	if statusFor(err) == http.StatusInternalServerError {
		log.Errorw("WebSocket operation failed", "error", err)
		msg = "internal server error"
	}
	return outboundFrame{Type: "error", Message: msg}
}

func writeFrame(conn *websocket.Conn, f outboundFrame) error {
	f.Timestamp = time.Now().UnixMilli()
	return conn.WriteJSON(f)
}
