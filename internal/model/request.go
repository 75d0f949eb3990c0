package model

type CreateSessionRequest struct {
	Title          string `json:"title"`
	ProfessionalID string `json:"professional_id"`
}

// VideoChatRequest 发起一次AI视频回复生成
type VideoChatRequest struct {
	SessionID      string `json:"session_id" binding:"required"`
	ProfessionalID string `json:"professional_id" binding:"required"`
	Message        string `json:"message" binding:"required"`
	Context        string `json:"context"` // chat | live，缺省chat
}
