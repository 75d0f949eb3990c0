package video

import (
	"sync"
	"time"

	"github.com/jaydheshiv/uyir-sub000/internal/config"
)

// AnimationStatus 单条消息的打字动画状态
type AnimationStatus string

const (
	AnimationIdle      AnimationStatus = "idle"
	AnimationAnimating AnimationStatus = "animating"
	AnimationDone      AnimationStatus = "done"
)

// AnimationState 动画状态快照
type AnimationState struct {
	Full      string          `json:"full"`
	Displayed string          `json:"displayed"`
	Status    AnimationStatus `json:"status"`
}

// Frame 动画帧，推给SSE层
type Frame struct {
	MessageID string
	Displayed string
	Done      bool
}

// RegisterOptions 注册选项。Script为true用视频口播的慢节奏，
// 否则用普通聊天回复的快节奏。
type RegisterOptions struct {
	Immediate bool
	Script    bool
}

type animEntry struct {
	full    []rune
	shown   int
	status  AnimationStatus
	cadence time.Duration
	stop    chan struct{}
}

// TypingEngine 按消息ID管理打字动画。每条消息独立计时器，
// 彼此取消互不影响；done为终态，同文本重复注册是空操作。
type TypingEngine struct {
	mu         sync.Mutex
	states     map[string]*animEntry
	chatTick   time.Duration
	scriptTick time.Duration
	onFrame    func(Frame)
}

func NewTypingEngine(cfg config.TypingConfig, onFrame func(Frame)) *TypingEngine {
	chatTick := cfg.ChatTick
	if chatTick <= 0 {
		chatTick = 35 * time.Millisecond
	}
	scriptTick := cfg.ScriptTick
	if scriptTick <= 0 {
		scriptTick = 80 * time.Millisecond
	}

	return &TypingEngine{
		states:     make(map[string]*animEntry),
		chatTick:   chatTick,
		scriptTick: scriptTick,
		onFrame:    onFrame,
	}
}

// Register 登记或更新一条消息的完整文本。
// Immediate直接落到done；同文本且已done的重复注册保持原状。
func (e *TypingEngine) Register(messageID, fullText string, opts RegisterOptions) {
	var frame *Frame

	e.mu.Lock()
	entry := e.states[messageID]

	if opts.Immediate {
		e.stopTimerLocked(entry)
		full := []rune(fullText)
		e.states[messageID] = &animEntry{
			full:    full,
			shown:   len(full),
			status:  AnimationDone,
			cadence: e.cadence(opts.Script),
		}
		frame = &Frame{MessageID: messageID, Displayed: fullText, Done: true}
	} else if entry != nil && string(entry.full) == fullText && entry.status == AnimationDone {
		// 幂等：同文本已播完，不重来
	} else {
		e.stopTimerLocked(entry)
		e.states[messageID] = &animEntry{
			full:    []rune(fullText),
			status:  AnimationIdle,
			cadence: e.cadence(opts.Script),
		}
	}
	e.mu.Unlock()

	if frame != nil {
		e.emit(*frame)
	}
}

// Start 从idle启动动画。animating或done状态下调用是空操作。
func (e *TypingEngine) Start(messageID string) {
	e.mu.Lock()
	entry := e.states[messageID]
	if entry == nil || entry.status != AnimationIdle || len(entry.full) == 0 {
		e.mu.Unlock()
		return
	}

	entry.status = AnimationAnimating
	entry.stop = make(chan struct{})
	stop := entry.stop
	cadence := entry.cadence
	e.mu.Unlock()

	go e.run(messageID, stop, cadence)
}

// run 每tick多显示一个字符，播完转done
func (e *TypingEngine) run(messageID string, stop chan struct{}, cadence time.Duration) {
	ticker := time.NewTicker(cadence)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			frame, done := e.advance(messageID, stop)
			if frame != nil {
				e.emit(*frame)
			}
			if done {
				return
			}
		}
	}
}

// advance 推进一个字符，返回(要发的帧, 是否结束)
func (e *TypingEngine) advance(messageID string, stop chan struct{}) (*Frame, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry := e.states[messageID]
	// 计时器已被替换或取消
	if entry == nil || entry.stop != stop || entry.status != AnimationAnimating {
		return nil, true
	}

	entry.shown++
	frame := &Frame{
		MessageID: messageID,
		Displayed: string(entry.full[:entry.shown]),
	}

	if entry.shown >= len(entry.full) {
		entry.status = AnimationDone
		entry.stop = nil
		frame.Done = true
		return frame, true
	}

	return frame, false
}

// Cancel 清掉该消息的计时器，displayed和status保持原样
func (e *TypingEngine) Cancel(messageID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopTimerLocked(e.states[messageID])
}

// CancelAll 视图销毁时清掉全部动画计时器
func (e *TypingEngine) CancelAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, entry := range e.states {
		e.stopTimerLocked(entry)
	}
}

// Snapshot 返回当前动画状态
func (e *TypingEngine) Snapshot(messageID string) (AnimationState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry := e.states[messageID]
	if entry == nil {
		return AnimationState{}, false
	}
	return AnimationState{
		Full:      string(entry.full),
		Displayed: string(entry.full[:entry.shown]),
		Status:    entry.status,
	}, true
}

func (e *TypingEngine) stopTimerLocked(entry *animEntry) {
	if entry != nil && entry.stop != nil {
		close(entry.stop)
		entry.stop = nil
	}
}

func (e *TypingEngine) cadence(script bool) time.Duration {
	if script {
		return e.scriptTick
	}
	return e.chatTick
}

func (e *TypingEngine) emit(frame Frame) {
	if e.onFrame != nil {
		e.onFrame(frame)
	}
}
