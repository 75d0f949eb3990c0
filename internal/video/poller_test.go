package video

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaydheshiv/uyir-sub000/internal/config"
	"github.com/jaydheshiv/uyir-sub000/internal/model"
)

type fakeFetcher struct {
	mu    sync.Mutex
	calls int
	fn    func(call int) (model.VideoChatPayload, error)
}

func (f *fakeFetcher) VideoChatStatus(ctx context.Context, professionalID, videoID string) (model.VideoChatPayload, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()
	return f.fn(call)
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type finishResult struct {
	outcome Outcome
	reason  error
}

func pollTestConfig() config.PollingConfig {
	return config.PollingConfig{Interval: 5 * time.Millisecond, MaxErrors: 3}
}

func startTestPoller(t *testing.T, fetcher *fakeFetcher) (*GenerationSession, *Poller, chan finishResult) {
	t.Helper()

	sess := NewGenerationSession("chat-1", "prof-1", "msg-1")
	sess.VideoID = "v1"

	finished := make(chan finishResult, 1)
	poller := NewPoller(fetcher, NewScriptExtractor(), pollTestConfig(), sess, PollerHooks{
		OnFinish: func(_ *GenerationSession, outcome Outcome, reason error) {
			finished <- finishResult{outcome: outcome, reason: reason}
		},
	})

	poller.Start(context.Background())
	t.Cleanup(func() {
		poller.Stop()
		poller.Wait()
	})

	return sess, poller, finished
}

func waitFinish(t *testing.T, finished chan finishResult) finishResult {
	t.Helper()
	select {
	case result := <-finished:
		return result
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not finish in time")
		return finishResult{}
	}
}

func TestPoller_ExhaustionAfterThreeErrors(t *testing.T) {
	fetcher := &fakeFetcher{fn: func(int) (model.VideoChatPayload, error) {
		return model.VideoChatPayload{}, errors.New("connection refused")
	}}

	sess, _, finished := startTestPoller(t, fetcher)

	result := waitFinish(t, finished)
	assert.Equal(t, OutcomeFailed, result.outcome)
	assert.ErrorIs(t, result.reason, ErrPollingExhausted)
	assert.Equal(t, 3, fetcher.callCount())

	// 终态之后不再有任何查询
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, 3, fetcher.callCount())
	assert.True(t, sess.Done())
}

func TestPoller_ClientErrorShortCircuits(t *testing.T) {
	fetcher := &fakeFetcher{fn: func(int) (model.VideoChatPayload, error) {
		return model.VideoChatPayload{}, fmt.Errorf("%w: http 404", ErrClientStatus)
	}}

	_, _, finished := startTestPoller(t, fetcher)

	result := waitFinish(t, finished)
	assert.Equal(t, OutcomeFailed, result.outcome)
	assert.ErrorIs(t, result.reason, ErrClientStatus)
	assert.Equal(t, 1, fetcher.callCount())
}

func TestPoller_SuccessResetsErrorCount(t *testing.T) {
	// 错、错、成功、错、错、错：只有第二串连续三次才触发熔断
	fetcher := &fakeFetcher{fn: func(call int) (model.VideoChatPayload, error) {
		if call == 3 {
			return model.PayloadFromMap(map[string]interface{}{"status": "in_progress"}), nil
		}
		return model.VideoChatPayload{}, errors.New("flaky upstream")
	}}

	_, _, finished := startTestPoller(t, fetcher)

	result := waitFinish(t, finished)
	assert.Equal(t, OutcomeFailed, result.outcome)
	assert.Equal(t, 6, fetcher.callCount())
}

func TestPoller_PlayableCompleted(t *testing.T) {
	fetcher := &fakeFetcher{fn: func(call int) (model.VideoChatPayload, error) {
		if call == 1 {
			return model.PayloadFromMap(map[string]interface{}{
				"status":   "processing",
				"progress": float64(40),
			}), nil
		}
		return model.PayloadFromMap(map[string]interface{}{
			"status":     "completed",
			"stream_url": "https://x/video.mp4",
		}), nil
	}}

	sess, _, finished := startTestPoller(t, fetcher)

	result := waitFinish(t, finished)
	assert.Equal(t, OutcomePlayable, result.outcome)
	assert.NoError(t, result.reason)

	view := sess.Snapshot()
	assert.Equal(t, StatusCompleted, view.Status)
	assert.Equal(t, "https://x/video.mp4", view.Sources.Primary())
	require.NotNil(t, view.Progress)
	assert.InDelta(t, 40, *view.Progress, 0.001)

	assert.Equal(t, 2, fetcher.callCount())
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 2, fetcher.callCount())
}

func TestPoller_DegradedFallsBackToCachedSource(t *testing.T) {
	fetcher := &fakeFetcher{fn: func(call int) (model.VideoChatPayload, error) {
		if call == 1 {
			return model.PayloadFromMap(map[string]interface{}{
				"status":       "processing",
				"download_url": "https://x/cached.mp4",
			}), nil
		}
		// 完成但这次应答没带任何地址
		return model.PayloadFromMap(map[string]interface{}{"status": "completed"}), nil
	}}

	sess, _, finished := startTestPoller(t, fetcher)

	result := waitFinish(t, finished)
	assert.Equal(t, OutcomeDegraded, result.outcome)
	assert.Equal(t, "https://x/cached.mp4", sess.Sources().Primary())
}

func TestPoller_UnplayableCompleted(t *testing.T) {
	fetcher := &fakeFetcher{fn: func(int) (model.VideoChatPayload, error) {
		return model.PayloadFromMap(map[string]interface{}{"status": "completed"}), nil
	}}

	_, _, finished := startTestPoller(t, fetcher)

	result := waitFinish(t, finished)
	assert.Equal(t, OutcomeUnplayable, result.outcome)
	assert.ErrorIs(t, result.reason, ErrMissingPlaybackURL)
}

func TestPoller_ExplicitFailureClearsSources(t *testing.T) {
	fetcher := &fakeFetcher{fn: func(call int) (model.VideoChatPayload, error) {
		if call == 1 {
			return model.PayloadFromMap(map[string]interface{}{
				"status":     "processing",
				"stream_url": "https://x/s.mp4",
			}), nil
		}
		return model.PayloadFromMap(map[string]interface{}{"status": "failed"}), nil
	}}

	sess, _, finished := startTestPoller(t, fetcher)

	result := waitFinish(t, finished)
	assert.Equal(t, OutcomeFailed, result.outcome)
	assert.ErrorIs(t, result.reason, ErrGenerationFailed)
	assert.True(t, sess.Sources().Empty())
}

func TestPoller_ErrorAbortKeepsCachedSource(t *testing.T) {
	fetcher := &fakeFetcher{fn: func(call int) (model.VideoChatPayload, error) {
		if call == 1 {
			return model.PayloadFromMap(map[string]interface{}{
				"status":     "processing",
				"stream_url": "https://x/keep.mp4",
			}), nil
		}
		return model.VideoChatPayload{}, fmt.Errorf("%w: http 410", ErrClientStatus)
	}}

	sess, _, finished := startTestPoller(t, fetcher)

	// 已有缓存地址时熔断不按失败处理
	result := waitFinish(t, finished)
	assert.Equal(t, OutcomeDegraded, result.outcome)
	assert.Equal(t, "https://x/keep.mp4", sess.Sources().Primary())
}

func TestPoller_StopHaltsPolling(t *testing.T) {
	fetcher := &fakeFetcher{fn: func(int) (model.VideoChatPayload, error) {
		return model.PayloadFromMap(map[string]interface{}{"status": "in_progress"}), nil
	}}

	updates := make(chan struct{}, 64)
	sess := NewGenerationSession("chat-1", "prof-1", "msg-1")
	sess.VideoID = "v1"

	poller := NewPoller(fetcher, NewScriptExtractor(), pollTestConfig(), sess, PollerHooks{
		OnUpdate: func(*GenerationSession) {
			select {
			case updates <- struct{}{}:
			default:
			}
		},
	})
	poller.Start(context.Background())

	select {
	case <-updates:
	case <-time.After(2 * time.Second):
		t.Fatal("no poll update observed")
	}

	poller.Stop()
	poller.Wait()

	calls := fetcher.callCount()
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, calls, fetcher.callCount())
	assert.False(t, sess.Done())
}

func TestPoller_StatuslessPayloadReadsProcessing(t *testing.T) {
	fetcher := &fakeFetcher{fn: func(call int) (model.VideoChatPayload, error) {
		if call == 1 {
			// 应答里只有进度，没有任何状态字段
			return model.PayloadFromMap(map[string]interface{}{"progress": float64(30)}), nil
		}
		return model.PayloadFromMap(map[string]interface{}{
			"status":     "completed",
			"stream_url": "https://x/v.mp4",
		}), nil
	}}

	statuses := make(chan Status, 8)
	sess := NewGenerationSession("chat-1", "prof-1", "msg-1")
	sess.VideoID = "v1"

	finished := make(chan finishResult, 1)
	poller := NewPoller(fetcher, NewScriptExtractor(), pollTestConfig(), sess, PollerHooks{
		OnUpdate: func(s *GenerationSession) {
			select {
			case statuses <- s.Status():
			default:
			}
		},
		OnFinish: func(_ *GenerationSession, outcome Outcome, reason error) {
			finished <- finishResult{outcome: outcome, reason: reason}
		},
	})
	poller.Start(context.Background())
	t.Cleanup(func() {
		poller.Stop()
		poller.Wait()
	})

	result := waitFinish(t, finished)
	assert.Equal(t, OutcomePlayable, result.outcome)

	select {
	case status := <-statuses:
		assert.Equal(t, StatusProcessing, status)
	default:
		t.Fatal("no intermediate poll update observed")
	}
}

func TestPoller_RecordsResponseTextDuringPolling(t *testing.T) {
	fetcher := &fakeFetcher{fn: func(call int) (model.VideoChatPayload, error) {
		if call == 1 {
			return model.PayloadFromMap(map[string]interface{}{
				"status":         "processing",
				"processed_text": "Keep a consistent sleep schedule.",
			}), nil
		}
		return model.PayloadFromMap(map[string]interface{}{
			"status":     "completed",
			"stream_url": "https://x/v.mp4",
		}), nil
	}}

	sess, _, finished := startTestPoller(t, fetcher)

	waitFinish(t, finished)
	assert.Equal(t, "Keep a consistent sleep schedule.", sess.ResponseText())
}
