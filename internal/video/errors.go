package video

import "errors"

var (
	// ErrMissingIdentifiers 创建应答里既没有video_id也没有任何可用播放地址
	ErrMissingIdentifiers = errors.New("create response has neither video_id nor playback url")

	// ErrMissingPlaybackURL 后端声称完成但始终没有可解析的播放地址
	ErrMissingPlaybackURL = errors.New("generation completed without playable url")

	// ErrClientStatus 轮询时上游返回4xx，视为不可恢复
	ErrClientStatus = errors.New("status endpoint rejected request")

	// ErrPollingExhausted 连续轮询失败达到阈值
	ErrPollingExhausted = errors.New("status polling error threshold reached")

	// ErrGenerationFailed 上游明确报告生成失败
	ErrGenerationFailed = errors.New("video generation failed")
)
