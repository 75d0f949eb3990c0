package model

import "time"

// ChatContext 消息所属的会话场景
type ChatContext string

const (
	ContextChat ChatContext = "chat"
	ContextLive ChatContext = "live"
)

// Message 聊天消息，AI视频回复的承载体
type Message struct {
	ID                string      `json:"id"`
	SessionID         string      `json:"session_id"`
	Text              string      `json:"text"`
	IsUser            bool        `json:"is_user"`
	Timestamp         time.Time   `json:"timestamp"`
	VideoURL          string      `json:"video_url,omitempty"`
	VideoID           string      `json:"video_id,omitempty"`
	VideoResponseText string      `json:"video_response_text,omitempty"`
	Progress          *float64    `json:"progress,omitempty"`
	Context           ChatContext `json:"context"`
}

// Session 一个用户与教练数字分身的对话
type Session struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	ProfessionalID string    `json:"professional_id"`
	Messages       []Message `json:"messages"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// VideoUpdate 消息上视频相关字段的增量更新
type VideoUpdate struct {
	VideoURL     string
	VideoID      string
	ResponseText string
	Progress     *float64
	Text         string
	SetText      bool // Text为空串也可能是有效覆盖，需显式标记
}
