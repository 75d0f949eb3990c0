package video

import (
	"sync"
)

// GenerationSession 一次“请求-轮询-取播放地址”的生命周期。
// 由VideoChatService创建，轮询tick独占写入，SSE侧只读快照。
type GenerationSession struct {
	mu sync.RWMutex

	// VideoID 后端任务ID，赋值后不再变更
	VideoID string
	// OwnerMessageID 归属的AI回复消息
	OwnerMessageID string
	// ChatSessionID 归属的聊天会话，supersede判定键
	ChatSessionID string
	// ProfessionalID 教练（数字分身）ID
	ProfessionalID string

	status            Status
	rawStatus         string
	progress          *float64
	sources           Sources
	responseText      string
	pollingErrorCount int
	outcome           Outcome
	done              bool
}

// SessionView 会话状态的不可变快照
type SessionView struct {
	VideoID           string   `json:"video_id"`
	OwnerMessageID    string   `json:"owner_message_id"`
	Status            Status   `json:"status"`
	RawStatus         string   `json:"raw_status"`
	Progress          *float64 `json:"progress"`
	Sources           Sources  `json:"sources"`
	ResponseText      string   `json:"response_text"`
	PollingErrorCount int      `json:"polling_error_count"`
	Outcome           Outcome  `json:"outcome,omitempty"`
	Done              bool     `json:"done"`
}

func NewGenerationSession(chatSessionID, professionalID, ownerMessageID string) *GenerationSession {
	return &GenerationSession{
		OwnerMessageID: ownerMessageID,
		ChatSessionID:  chatSessionID,
		ProfessionalID: professionalID,
		status:         StatusPending,
	}
}

func (s *GenerationSession) Snapshot() SessionView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var progress *float64
	if s.progress != nil {
		p := *s.progress
		progress = &p
	}

	return SessionView{
		VideoID:           s.VideoID,
		OwnerMessageID:    s.OwnerMessageID,
		Status:            s.status,
		RawStatus:         s.rawStatus,
		Progress:          progress,
		Sources:           s.sources,
		ResponseText:      s.responseText,
		PollingErrorCount: s.pollingErrorCount,
		Outcome:           s.outcome,
		Done:              s.done,
	}
}

func (s *GenerationSession) SetStatus(status Status, raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.rawStatus = raw
}

func (s *GenerationSession) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *GenerationSession) SetProgress(p *float64) {
	if p == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = p
}

func (s *GenerationSession) Progress() *float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.progress
}

// MergeSources 单点合并入口：轮询tick和创建即完成路径都走这里，
// 保证snapshot的单调性约束只实现一次
func (s *GenerationSession) MergeSources(update Sources, replace bool) Sources {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources = MergeSources(s.sources, update, replace)
	return s.sources
}

func (s *GenerationSession) Sources() Sources {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sources
}

// ClearSources 仅用于明确失败的终态
func (s *GenerationSession) ClearSources() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources = Sources{}
}

func (s *GenerationSession) SetResponseText(text string) {
	if text == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responseText = text
}

func (s *GenerationSession) ResponseText() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.responseText
}

// RecordPollError 累加轮询失败次数并返回当前值
func (s *GenerationSession) RecordPollError() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pollingErrorCount++
	return s.pollingErrorCount
}

func (s *GenerationSession) ResetPollErrors() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pollingErrorCount = 0
}

// Finish 标记终态。只有第一次调用生效，返回是否由本次调用完成
func (s *GenerationSession) Finish(outcome Outcome) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return false
	}
	s.done = true
	s.outcome = outcome
	if outcome == OutcomeFailed {
		s.status = StatusFailed
	} else {
		s.status = StatusCompleted
	}
	return true
}

func (s *GenerationSession) Done() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.done
}

func (s *GenerationSession) Outcome() Outcome {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.outcome
}
