package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jaydheshiv/uyir-sub000/internal/model"
	"github.com/jaydheshiv/uyir-sub000/internal/service"
	"github.com/jaydheshiv/uyir-sub000/internal/utils"
	"github.com/jaydheshiv/uyir-sub000/internal/video"
	"github.com/jaydheshiv/uyir-sub000/pkg/logger"
)

type ChatHandler struct {
	chatService  *service.ChatService
	videoService *service.VideoChatService
}

func NewChatHandler(chatService *service.ChatService, videoService *service.VideoChatService) *ChatHandler {
	return &ChatHandler{
		chatService:  chatService,
		videoService: videoService,
	}
}

// StartVideoChat 受理一次AI视频回复生成，立即返回消息ID，
// 后续进展走事件流
func (h *ChatHandler) StartVideoChat(c *gin.Context) {
	var req model.VideoChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.videoService.Generate(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, video.ErrMissingIdentifiers) {
			// 上游应答没法定位任务也没给地址，告知前端直接失败
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "response": resp})
			return
		}
		if resp != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "response": resp})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, resp)
}

// StreamEvents SSE事件流：status/typing/video/error
func (h *ChatHandler) StreamEvents(c *gin.Context) {
	messageID := c.Param("message_id")

	sseWriter := utils.NewSSEWriter(c.Writer)

	events, cancel := h.videoService.Subscribe(messageID)
	defer cancel()

	// 接入时补发当前生成状态，避免客户端错过已发生的进展
	if view, ok := h.videoService.ActiveSnapshot(messageID); ok {
		snapshot, _ := json.Marshal(model.ChatEvent{
			Type:      "status",
			MessageID: messageID,
			Status:    string(view.Status),
			Progress:  view.Progress,
			Text:      view.ResponseText,
			Timestamp: time.Now().Unix(),
		})
		sseWriter.Write("status", string(snapshot))
	}

	// 心跳防止空闲断连
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	ctx := c.Request.Context()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				sseWriter.Done()
				return
			}

			data, err := json.Marshal(event)
			if err != nil {
				logger.Errorf("Failed to marshal event: %v", err)
				continue
			}
			if err := sseWriter.Write(event.Type, string(data)); err != nil {
				logger.Errorf("Failed to write SSE: %v", err)
				return
			}

			// video/error是事件流的终点，typing帧可能在其后继续，
			// 但error终局后不会再有帧
			if event.Type == "error" && event.Done {
				sseWriter.Done()
				return
			}

		case <-heartbeat.C:
			data, _ := json.Marshal(gin.H{
				"type":      "heartbeat",
				"timestamp": time.Now().Unix(),
			})
			if err := sseWriter.Write("heartbeat", string(data)); err != nil {
				logger.Warnf("heartbeat write failed: %v", err)
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

// PlaybackReady 宿主UI上报视频播放就绪信号。
// mode=webview时用固定静置延迟兜底，原生模式立即起打字动画。
func (h *ChatHandler) PlaybackReady(c *gin.Context) {
	messageID := c.Param("message_id")
	webview := c.Query("mode") == "webview"

	h.videoService.OnPlaybackReady(messageID, webview)

	c.JSON(http.StatusOK, gin.H{"message": "Playback readiness recorded"})
}

func (h *ChatHandler) CreateSession(c *gin.Context) {
	var req model.CreateSessionRequest
	// 允许空请求体，使用默认标题
	if err := c.ShouldBindJSON(&req); err != nil {
		req.Title = ""
	}

	session, err := h.chatService.CreateSession(req.Title, req.ProfessionalID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *ChatHandler) GetSession(c *gin.Context) {
	sessionID := c.Param("session_id")

	session, err := h.chatService.GetSession(sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, model.SessionResponse{
		SessionID:      session.ID,
		Title:          session.Title,
		ProfessionalID: session.ProfessionalID,
		CreatedAt:      session.CreatedAt,
		UpdatedAt:      session.UpdatedAt,
		MessageCount:   len(session.Messages),
	})
}

func (h *ChatHandler) GetMessages(c *gin.Context) {
	sessionID := c.Param("session_id")

	messages, err := h.chatService.GetSessionMessages(sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id": sessionID,
		"messages":   messages,
	})
}

func (h *ChatHandler) GetSessionList(c *gin.Context) {
	sessions, err := h.chatService.GetAllSessions()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sessions": sessions,
	})
}

func (h *ChatHandler) DeleteSession(c *gin.Context) {
	sessionID := c.Param("session_id")

	err := h.chatService.DeleteSession(sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Session deleted successfully"})
}

func (h *ChatHandler) UpdateSessionTitle(c *gin.Context) {
	sessionID := c.Param("session_id")

	var req struct {
		Title string `json:"title" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.chatService.UpdateSessionTitle(sessionID, req.Title)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Title updated successfully"})
}
