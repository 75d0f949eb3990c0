package video

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jaydheshiv/uyir-sub000/internal/config"
	"github.com/jaydheshiv/uyir-sub000/internal/model"
	"github.com/jaydheshiv/uyir-sub000/pkg/logger"
)

// StatusFetcher poller需要的上游能力子集
type StatusFetcher interface {
	VideoChatStatus(ctx context.Context, professionalID, videoID string) (model.VideoChatPayload, error)
}

// PollerHooks 轮询过程回调。OnUpdate在每个成功且未终止的tick后触发，
// OnFinish在终态确定时触发且只触发一次。
type PollerHooks struct {
	OnUpdate func(sess *GenerationSession)
	OnFinish func(sess *GenerationSession, outcome Outcome, reason error)
}

// Poller 固定周期轮询一个生成任务的状态。
// 每个GenerationSession至多一个Poller，Stop之后不再产生任何回调以外的副作用。
type Poller struct {
	fetcher   StatusFetcher
	script    *ScriptExtractor
	interval  time.Duration
	maxErrors int

	sess  *GenerationSession
	hooks PollerHooks

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewPoller(fetcher StatusFetcher, script *ScriptExtractor, cfg config.PollingConfig, sess *GenerationSession, hooks PollerHooks) *Poller {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	maxErrors := cfg.MaxErrors
	if maxErrors <= 0 {
		maxErrors = 3
	}

	return &Poller{
		fetcher:   fetcher,
		script:    script,
		interval:  interval,
		maxErrors: maxErrors,
		sess:      sess,
		hooks:     hooks,
		stopCh:    make(chan struct{}),
	}
}

// Start 启动轮询循环。终态、Stop或ctx取消三者任一即退出。
func (p *Poller) Start(ctx context.Context) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-p.stopCh:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if p.tick(ctx) {
					return
				}
			}
		}
	}()
}

// Stop 幂等停止。已在执行中的tick会跑完，之后不再有新的tick。
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})
}

// Wait 等待轮询goroutine退出，视图销毁时保证不再有状态写入
func (p *Poller) Wait() {
	p.wg.Wait()
}

// tick 执行一次状态查询并应用结果，返回是否终止轮询
func (p *Poller) tick(ctx context.Context) bool {
	select {
	case <-p.stopCh:
		return true
	default:
	}

	payload, err := p.fetcher.VideoChatStatus(ctx, p.sess.ProfessionalID, p.sess.VideoID)
	if err != nil {
		return p.handlePollError(err)
	}

	// 查询成功即清零连续失败计数
	p.sess.ResetPollErrors()

	status, raw := StatusFromPayload(payload)
	if raw == "" {
		// 任务已存在却取不到状态字段，按仍在处理对待而不是退回pending
		status = StatusProcessing
	}
	p.sess.SetStatus(status, raw)

	fresh := ResolveSources(payload)
	merged := p.sess.MergeSources(fresh, false)

	p.sess.SetProgress(ExtractProgress(payload))
	p.sess.SetResponseText(p.script.Extract(payload))

	if !status.Terminal() {
		if p.hooks.OnUpdate != nil {
			p.hooks.OnUpdate(p.sess)
		}
		return false
	}

	if status == StatusFailed {
		// 明确失败时丢弃已缓存地址，失败的任务不该留下可播内容
		p.sess.ClearSources()
		p.finish(OutcomeFailed, ErrGenerationFailed)
		return true
	}

	p.finishCompleted(fresh, merged)
	return true
}

// finishCompleted 成功终态的三种归宿判定
func (p *Poller) finishCompleted(fresh, merged Sources) {
	if fresh.Primary() != "" {
		p.finish(OutcomePlayable, nil)
		return
	}

	if merged.Primary() != "" {
		logger.WithFields(map[string]interface{}{
			"video_id": p.sess.VideoID,
			"message":  p.sess.OwnerMessageID,
		}).Warn("completed without fresh url, falling back to cached source")
		p.finish(OutcomeDegraded, nil)
		return
	}

	p.finish(OutcomeUnplayable, ErrMissingPlaybackURL)
}

// handlePollError tick失败处理：计数累加，4xx直接熔断
func (p *Poller) handlePollError(err error) bool {
	count := p.sess.RecordPollError()
	fatal := errors.Is(err, ErrClientStatus)

	logger.WithFields(map[string]interface{}{
		"video_id": p.sess.VideoID,
		"errors":   count,
	}).Warnf("status poll failed: %v", err)

	if !fatal && count < p.maxErrors {
		return false
	}

	// 已有缓存地址就保住它，不用错误文案覆盖消息
	if cached := p.sess.Sources().Primary(); cached != "" {
		p.finish(OutcomeDegraded, nil)
		return true
	}

	reason := fmt.Errorf("%w: %v", ErrPollingExhausted, err)
	if fatal {
		reason = err
	}
	p.finish(OutcomeFailed, reason)
	return true
}

func (p *Poller) finish(outcome Outcome, reason error) {
	if !p.sess.Finish(outcome) {
		return
	}
	if p.hooks.OnFinish != nil {
		p.hooks.OnFinish(p.sess, outcome, reason)
	}
}
