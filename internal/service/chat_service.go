package service

import (
	"fmt"
	"time"

	"github.com/jaydheshiv/uyir-sub000/internal/config"
	"github.com/jaydheshiv/uyir-sub000/internal/model"
	"github.com/jaydheshiv/uyir-sub000/internal/storage"
	"github.com/jaydheshiv/uyir-sub000/pkg/logger"
)

// ChatService 会话与消息的增删查，以及过期会话清理
type ChatService struct {
	storage storage.Storage
	config  *config.SessionConfig
	stopCh  chan struct{}
}

func NewChatService(cfg *config.Config) *ChatService {
	var store storage.Storage

	if cfg.Storage.Type == "disk" {
		store = storage.NewDiskStorage(cfg.Storage.DataDir, cfg.Storage.CacheSize)
	} else {
		store = storage.NewMemoryStorage()
	}

	if err := store.Init(); err != nil {
		logger.Errorf("Failed to initialize storage, falling back to memory: %v", err)
		store = storage.NewMemoryStorage()
		store.Init()
	}

	cs := &ChatService{
		storage: store,
		config:  &cfg.Session,
		stopCh:  make(chan struct{}),
	}

	if cfg.Session.CleanupInterval > 0 {
		go cs.cleanupOldSessions()
	}

	return cs
}

func (s *ChatService) CreateSession(title, professionalID string) (*model.Session, error) {
	sessionID := fmt.Sprintf("%d", time.Now().UnixNano())

	if title == "" {
		title = "New conversation " + time.Now().Format("2006-01-02 15:04")
	}

	session := &model.Session{
		ID:             sessionID,
		Title:          title,
		ProfessionalID: professionalID,
		Messages:       make([]model.Message, 0),
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}

	if err := s.storage.CreateSession(session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

func (s *ChatService) GetSession(sessionID string) (*model.Session, error) {
	session, err := s.storage.GetSession(sessionID)
	if err != nil {
		if err == storage.ErrSessionNotFound {
			return nil, fmt.Errorf("session not found: %s", sessionID)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

func (s *ChatService) GetSessionMessages(sessionID string) ([]model.Message, error) {
	messages, err := s.storage.GetMessages(sessionID)
	if err != nil {
		if err == storage.ErrSessionNotFound {
			return nil, fmt.Errorf("session not found: %s", sessionID)
		}
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}

	result := make([]model.Message, len(messages))
	for i, msg := range messages {
		result[i] = *msg
	}

	return result, nil
}

func (s *ChatService) GetAllSessions() ([]*model.Session, error) {
	sessions, err := s.storage.ListSessions()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	return sessions, nil
}

func (s *ChatService) DeleteSession(sessionID string) error {
	if err := s.storage.DeleteSession(sessionID); err != nil {
		if err == storage.ErrSessionNotFound {
			return fmt.Errorf("session not found: %s", sessionID)
		}
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

func (s *ChatService) UpdateSessionTitle(sessionID, title string) error {
	session, err := s.storage.GetSession(sessionID)
	if err != nil {
		if err == storage.ErrSessionNotFound {
			return fmt.Errorf("session not found: %s", sessionID)
		}
		return fmt.Errorf("failed to get session: %w", err)
	}

	session.Title = title
	session.UpdatedAt = time.Now()

	if err := s.storage.UpdateSession(session); err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	return nil
}

// Stop 结束后台清理
func (s *ChatService) Stop() {
	close(s.stopCh)
	s.storage.Close()
}

// GetStorage 返回存储实例，供视频生成服务共享
func (s *ChatService) GetStorage() storage.Storage {
	return s.storage
}

func (s *ChatService) cleanupOldSessions() {
	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			sessions, err := s.storage.ListSessions()
			if err != nil {
				logger.Errorf("Failed to list sessions for cleanup: %v", err)
				continue
			}

			cutoff := time.Now().Add(-s.config.TTL)
			for _, session := range sessions {
				if session.UpdatedAt.Before(cutoff) {
					if err := s.storage.DeleteSession(session.ID); err != nil {
						logger.Errorf("Failed to delete expired session %s: %v", session.ID, err)
					} else {
						logger.Infof("Cleaned up expired session: %s", session.ID)
					}
				}
			}
		}
	}
}
