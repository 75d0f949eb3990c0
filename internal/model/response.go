package model

import "time"

type SessionResponse struct {
	SessionID      string    `json:"session_id"`
	Title          string    `json:"title"`
	ProfessionalID string    `json:"professional_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	MessageCount   int       `json:"message_count"`
}

// VideoChatResponse 生成请求受理后的应答
type VideoChatResponse struct {
	SessionID     string `json:"session_id"`
	UserMessageID string `json:"user_message_id"`
	MessageID     string `json:"message_id"` // AI回复消息ID，事件流订阅键
	VideoID       string `json:"video_id,omitempty"`
	Status        string `json:"status"`
}

// ChatEvent SSE事件流上的统一事件封装
type ChatEvent struct {
	Type      string   `json:"type"` // status | typing | video | error
	MessageID string   `json:"message_id"`
	Status    string   `json:"status,omitempty"`
	Progress  *float64 `json:"progress,omitempty"`
	Text      string   `json:"text,omitempty"`
	VideoURL  string   `json:"video_url,omitempty"`
	Done      bool     `json:"done,omitempty"`
	Error     string   `json:"error,omitempty"`
	Timestamp int64    `json:"timestamp"`
}
