package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/jaydheshiv/uyir-sub000/internal/model"
	"github.com/jaydheshiv/uyir-sub000/pkg/logger"
)

// DiskStorage JSON文件落盘存储。每个会话一个文件（含消息），
// 外加一个索引文件支撑列表查询；写入走临时文件+rename。
type DiskStorage struct {
	dataDir   string
	mu        sync.RWMutex
	cache     map[string]*model.Session
	cacheSize int
}

type sessionIndexEntry struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	ProfessionalID string    `json:"professional_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func NewDiskStorage(dataDir string, cacheSize int) *DiskStorage {
	if cacheSize <= 0 {
		cacheSize = 100
	}
	return &DiskStorage{
		dataDir:   dataDir,
		cache:     make(map[string]*model.Session),
		cacheSize: cacheSize,
	}
}

func (d *DiskStorage) Init() error {
	if err := os.MkdirAll(filepath.Join(d.dataDir, "sessions"), 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInit, err)
	}

	if err := d.warmCache(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInit, err)
	}

	logger.Info("Disk storage initialized")
	return nil
}

func (d *DiskStorage) Close() error {
	return nil
}

// warmCache 启动时按更新时间装载最近的会话
func (d *DiskStorage) warmCache() error {
	indexes, err := d.loadIndex()
	if err != nil {
		return err
	}

	sort.Slice(indexes, func(i, j int) bool {
		return indexes[i].UpdatedAt.After(indexes[j].UpdatedAt)
	})

	for _, idx := range indexes {
		if len(d.cache) >= d.cacheSize {
			break
		}
		session, err := d.readSessionFile(idx.ID)
		if err != nil {
			logger.Errorf("Failed to load session %s: %v", idx.ID, err)
			continue
		}
		d.cache[idx.ID] = session
	}

	return nil
}

func (d *DiskStorage) indexPath() string {
	return filepath.Join(d.dataDir, "index.json")
}

func (d *DiskStorage) sessionPath(sessionID string) string {
	return filepath.Join(d.dataDir, "sessions", sessionID+".json")
}

func (d *DiskStorage) loadIndex() ([]sessionIndexEntry, error) {
	data, err := os.ReadFile(d.indexPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var indexes []sessionIndexEntry
	if err := json.Unmarshal(data, &indexes); err != nil {
		return nil, err
	}
	return indexes, nil
}

func (d *DiskStorage) writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tempPath, path)
}

func (d *DiskStorage) readSessionFile(sessionID string) (*model.Session, error) {
	data, err := os.ReadFile(d.sessionPath(sessionID))
	if err != nil {
		return nil, err
	}

	var session model.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// refreshIndexLocked 用当前磁盘目录重建索引文件
func (d *DiskStorage) refreshIndexLocked() error {
	entries, err := os.ReadDir(filepath.Join(d.dataDir, "sessions"))
	if err != nil {
		return err
	}

	indexes := make([]sessionIndexEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		id := entry.Name()[:len(entry.Name())-len(".json")]
		session, err := d.readSessionFile(id)
		if err != nil {
			logger.Errorf("Skipping unreadable session file %s: %v", entry.Name(), err)
			continue
		}
		indexes = append(indexes, sessionIndexEntry{
			ID:             session.ID,
			Title:          session.Title,
			ProfessionalID: session.ProfessionalID,
			CreatedAt:      session.CreatedAt,
			UpdatedAt:      session.UpdatedAt,
		})
	}

	return d.writeJSON(d.indexPath(), indexes)
}

// cacheLocked 写缓存，超限时按UpdatedAt淘汰最旧的一个
func (d *DiskStorage) cacheLocked(session *model.Session) {
	if len(d.cache) >= d.cacheSize {
		var oldestID string
		var oldest time.Time
		for id, s := range d.cache {
			if oldestID == "" || s.UpdatedAt.Before(oldest) {
				oldestID = id
				oldest = s.UpdatedAt
			}
		}
		if oldestID != "" {
			delete(d.cache, oldestID)
		}
	}
	d.cache[session.ID] = session
}

func (d *DiskStorage) CreateSession(session *model.Session) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.writeJSON(d.sessionPath(session.ID), session); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	d.cacheLocked(session)

	if err := d.refreshIndexLocked(); err != nil {
		logger.Errorf("Failed to refresh session index: %v", err)
	}
	return nil
}

func (d *DiskStorage) GetSession(sessionID string) (*model.Session, error) {
	d.mu.RLock()
	if session, ok := d.cache[sessionID]; ok {
		d.mu.RUnlock()
		return cloneSession(session), nil
	}
	d.mu.RUnlock()

	d.mu.Lock()
	defer d.mu.Unlock()

	session, err := d.readSessionFile(sessionID)
	if os.IsNotExist(err) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	d.cacheLocked(session)
	return cloneSession(session), nil
}

func (d *DiskStorage) UpdateSession(session *model.Session) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := os.Stat(d.sessionPath(session.ID)); os.IsNotExist(err) {
		return ErrSessionNotFound
	}

	return d.persistLocked(session)
}

func (d *DiskStorage) persistLocked(session *model.Session) error {
	if err := d.writeJSON(d.sessionPath(session.ID), session); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	d.cacheLocked(session)

	if err := d.refreshIndexLocked(); err != nil {
		logger.Errorf("Failed to refresh session index: %v", err)
	}
	return nil
}

func (d *DiskStorage) DeleteSession(sessionID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	err := os.Remove(d.sessionPath(sessionID))
	if os.IsNotExist(err) {
		return ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	delete(d.cache, sessionID)

	if err := d.refreshIndexLocked(); err != nil {
		logger.Errorf("Failed to refresh session index: %v", err)
	}
	return nil
}

func (d *DiskStorage) ListSessions() ([]*model.Session, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	indexes, err := d.loadIndex()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	sessions := make([]*model.Session, 0, len(indexes))
	for _, idx := range indexes {
		if cached, ok := d.cache[idx.ID]; ok {
			sessions = append(sessions, cloneSession(cached))
			continue
		}
		session, err := d.readSessionFile(idx.ID)
		if err != nil {
			logger.Errorf("Failed to read session %s: %v", idx.ID, err)
			continue
		}
		sessions = append(sessions, session)
	}

	return sessions, nil
}

func (d *DiskStorage) AddMessage(sessionID string, message *model.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	session, err := d.getSessionLocked(sessionID)
	if err != nil {
		return err
	}

	session.Messages = append(session.Messages, *message)
	session.UpdatedAt = time.Now()
	return d.persistLocked(session)
}

func (d *DiskStorage) GetMessages(sessionID string) ([]*model.Message, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	session, err := d.getSessionLocked(sessionID)
	if err != nil {
		return nil, err
	}

	messages := make([]*model.Message, len(session.Messages))
	for i := range session.Messages {
		msg := session.Messages[i]
		messages[i] = &msg
	}
	return messages, nil
}

func (d *DiskStorage) UpdateMessageText(sessionID, messageID, text string) error {
	return d.mutateMessage(sessionID, messageID, func(msg *model.Message) {
		msg.Text = text
	})
}

func (d *DiskStorage) UpdateMessageVideo(sessionID, messageID string, update model.VideoUpdate) error {
	return d.mutateMessage(sessionID, messageID, func(msg *model.Message) {
		applyVideoUpdate(msg, update)
	})
}

func (d *DiskStorage) mutateMessage(sessionID, messageID string, mutate func(*model.Message)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	session, err := d.getSessionLocked(sessionID)
	if err != nil {
		return err
	}

	for i := range session.Messages {
		if session.Messages[i].ID == messageID {
			mutate(&session.Messages[i])
			session.UpdatedAt = time.Now()
			return d.persistLocked(session)
		}
	}

	return ErrMessageNotFound
}

func (d *DiskStorage) getSessionLocked(sessionID string) (*model.Session, error) {
	if session, ok := d.cache[sessionID]; ok {
		return session, nil
	}

	session, err := d.readSessionFile(sessionID)
	if os.IsNotExist(err) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	d.cacheLocked(session)
	return session, nil
}
