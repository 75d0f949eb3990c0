package video

import (
	"github.com/jaydheshiv/uyir-sub000/internal/model"
)

// Sources 三类播放地址的最近有效快照
type Sources struct {
	Stream   string `json:"stream,omitempty"`
	Download string `json:"download,omitempty"`
	Hosted   string `json:"hosted,omitempty"`
}

// Primary 播放优先级 stream > download > hosted
func (s Sources) Primary() string {
	if s.Stream != "" {
		return s.Stream
	}
	if s.Download != "" {
		return s.Download
	}
	return s.Hosted
}

func (s Sources) Empty() bool {
	return s.Stream == "" && s.Download == "" && s.Hosted == ""
}

// ResolveSources 从任意形状的载荷中提取候选播放地址。
// 每类地址按别名顺序取第一个非空值，取不到就留空。
func ResolveSources(p model.VideoChatPayload) Sources {
	return Sources{
		Stream:   p.FirstString(model.StreamURLAliases),
		Download: p.FirstString(model.DownloadURLAliases),
		Hosted:   p.FirstString(model.HostedURLAliases),
	}
}

// MergeSources 单调合并：已知字段不会被空值覆盖，除非显式replace。
// update里的非空字段优先生效。
func MergeSources(current, update Sources, replace bool) Sources {
	base := current
	if replace {
		base = Sources{}
	}

	merged := base
	if update.Stream != "" {
		merged.Stream = update.Stream
	}
	if update.Download != "" {
		merged.Download = update.Download
	}
	if update.Hosted != "" {
		merged.Hosted = update.Hosted
	}
	return merged
}
