package storage

import (
	"sync"
	"time"

	"github.com/jaydheshiv/uyir-sub000/internal/model"
)

type MemoryStorage struct {
	sessions map[string]*model.Session
	mu       sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		sessions: make(map[string]*model.Session),
	}
}

func (m *MemoryStorage) Init() error {
	return nil
}

func (m *MemoryStorage) Close() error {
	return nil
}

func (m *MemoryStorage) CreateSession(session *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[session.ID] = session
	return nil
}

func (m *MemoryStorage) GetSession(sessionID string) (*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[sessionID]
	if !exists {
		return nil, ErrSessionNotFound
	}

	// 返回副本：调用方在锁外读，轮询tick在锁内写
	return cloneSession(session), nil
}

func (m *MemoryStorage) UpdateSession(session *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[session.ID]; !exists {
		return ErrSessionNotFound
	}

	m.sessions[session.ID] = session
	return nil
}

func (m *MemoryStorage) DeleteSession(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[sessionID]; !exists {
		return ErrSessionNotFound
	}

	delete(m.sessions, sessionID)
	return nil
}

func (m *MemoryStorage) ListSessions() ([]*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]*model.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, cloneSession(session))
	}

	return sessions, nil
}

func (m *MemoryStorage) AddMessage(sessionID string, message *model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[sessionID]
	if !exists {
		return ErrSessionNotFound
	}

	session.Messages = append(session.Messages, *message)
	session.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStorage) GetMessages(sessionID string) ([]*model.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[sessionID]
	if !exists {
		return nil, ErrSessionNotFound
	}

	messages := make([]*model.Message, len(session.Messages))
	for i := range session.Messages {
		msg := session.Messages[i]
		messages[i] = &msg
	}

	return messages, nil
}

func (m *MemoryStorage) UpdateMessageText(sessionID, messageID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg, err := m.findMessageLocked(sessionID, messageID)
	if err != nil {
		return err
	}

	msg.Text = text
	m.sessions[sessionID].UpdatedAt = time.Now()
	return nil
}

// UpdateMessageVideo 只覆盖update里带值的字段
func (m *MemoryStorage) UpdateMessageVideo(sessionID, messageID string, update model.VideoUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg, err := m.findMessageLocked(sessionID, messageID)
	if err != nil {
		return err
	}

	applyVideoUpdate(msg, update)
	m.sessions[sessionID].UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStorage) findMessageLocked(sessionID, messageID string) (*model.Message, error) {
	session, exists := m.sessions[sessionID]
	if !exists {
		return nil, ErrSessionNotFound
	}

	for i := range session.Messages {
		if session.Messages[i].ID == messageID {
			return &session.Messages[i], nil
		}
	}

	return nil, ErrMessageNotFound
}

// cloneSession 深拷贝会话及消息切片，memory与disk共用
func cloneSession(session *model.Session) *model.Session {
	clone := *session
	clone.Messages = make([]model.Message, len(session.Messages))
	copy(clone.Messages, session.Messages)
	return &clone
}

// applyVideoUpdate 增量套用视频字段，memory与disk共用
func applyVideoUpdate(msg *model.Message, update model.VideoUpdate) {
	if update.VideoURL != "" {
		msg.VideoURL = update.VideoURL
	}
	if update.VideoID != "" {
		msg.VideoID = update.VideoID
	}
	if update.ResponseText != "" {
		msg.VideoResponseText = update.ResponseText
	}
	if update.Progress != nil {
		msg.Progress = update.Progress
	}
	if update.SetText {
		msg.Text = update.Text
	}
}
