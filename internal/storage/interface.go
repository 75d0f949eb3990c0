package storage

import (
	"github.com/jaydheshiv/uyir-sub000/internal/model"
)

// Storage 会话与消息的持久化边界。
// 消息上的视频字段更新必须带会话ID校验，避免跨会话串改。
type Storage interface {
	// 会话管理
	CreateSession(session *model.Session) error
	GetSession(sessionID string) (*model.Session, error)
	UpdateSession(session *model.Session) error
	DeleteSession(sessionID string) error
	ListSessions() ([]*model.Session, error)

	// 消息管理
	AddMessage(sessionID string, message *model.Message) error
	GetMessages(sessionID string) ([]*model.Message, error)
	UpdateMessageText(sessionID, messageID, text string) error
	UpdateMessageVideo(sessionID, messageID string, update model.VideoUpdate) error

	// 存储管理
	Init() error
	Close() error
}
