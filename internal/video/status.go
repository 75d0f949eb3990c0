package video

import (
	"strings"

	"github.com/jaydheshiv/uyir-sub000/internal/model"
)

// Status 归一化后的生成任务状态
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// NormalizeStatus 后端状态同义词收敛。
// 未知的非空状态按processing处理：任务存在但叫不出名字的状态，
// 继续轮询比武断终止安全。
func NormalizeStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return StatusPending
	case "ready", "completed", "complete", "done":
		return StatusCompleted
	case "failed", "error":
		return StatusFailed
	case "queued", "pending":
		return StatusPending
	case "in_progress", "processing", "generating":
		return StatusProcessing
	default:
		return StatusProcessing
	}
}

// Terminal 是否为终态
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Outcome 一次生成会话的最终归宿
type Outcome string

const (
	// OutcomePlayable 完成且本次应答直接给出了播放地址
	OutcomePlayable Outcome = "playable_completed"
	// OutcomeDegraded 完成但没有新地址，退回此前轮询缓存的地址
	OutcomeDegraded Outcome = "degraded_completed"
	// OutcomeUnplayable 完成但从头到尾没有任何播放地址，对用户等同失败
	OutcomeUnplayable Outcome = "unplayable_completed"
	// OutcomeFailed 上游明确失败或轮询耗尽
	OutcomeFailed Outcome = "failed"
)

// Playable 该归宿是否产出了可播放地址
func (o Outcome) Playable() bool {
	return o == OutcomePlayable || o == OutcomeDegraded
}

// StatusFromPayload 从载荷中取原始状态并归一化，返回(归一化, 原始)
func StatusFromPayload(p model.VideoChatPayload) (Status, string) {
	raw := p.FirstString(model.StatusAliases)
	return NormalizeStatus(raw), raw
}
