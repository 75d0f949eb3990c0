package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jaydheshiv/uyir-sub000/internal/config"
	"github.com/jaydheshiv/uyir-sub000/internal/model"
	"github.com/jaydheshiv/uyir-sub000/internal/storage"
	"github.com/jaydheshiv/uyir-sub000/internal/video"
	"github.com/jaydheshiv/uyir-sub000/pkg/logger"
)

// 终局时替换AI回复气泡的文案。已捕获的口播文本保留在
// video_response_text字段里，不随失败文案一起丢掉。
const (
	failureTextGeneric    = "Sorry, your coach's video reply could not be generated. Please try sending your message again."
	failureTextUnplayable = "The video reply finished processing but no playable video came back. Please try again."
	failureTextStatus     = "Video status check failed. Please try sending your message again."
)

// activeGeneration 一个聊天会话当前在跑的生成任务
type activeGeneration struct {
	sess   *video.GenerationSession
	poller *video.Poller
}

// VideoChatService AI视频回复的编排层：发起生成、轮询托管、
// 终局落库、打字动画与事件流联动。
type VideoChatService struct {
	store   storage.Storage
	api     video.PlatformAPI
	typing  *video.TypingEngine
	script  *video.ScriptExtractor
	pollCfg config.PollingConfig
	settle  time.Duration

	bus       *EventBus
	retriever ContextRetriever

	mu     sync.Mutex
	active map[string]*activeGeneration // 聊天会话ID → 当前生成
	closed bool

	// baseCtx 轮询goroutine的父上下文，Close时整体取消
	baseCtx context.Context
	cancel  context.CancelFunc
}

func NewVideoChatService(cfg *config.Config, store storage.Storage, api video.PlatformAPI, retriever ContextRetriever) *VideoChatService {
	ctx, cancel := context.WithCancel(context.Background())

	s := &VideoChatService{
		store:     store,
		api:       api,
		script:    video.NewScriptExtractor(),
		pollCfg:   cfg.Polling,
		settle:    cfg.Typing.WebviewSettle,
		bus:       NewEventBus(),
		retriever: retriever,
		active:    make(map[string]*activeGeneration),
		baseCtx:   ctx,
		cancel:    cancel,
	}

	s.typing = video.NewTypingEngine(cfg.Typing, s.publishFrame)
	return s
}

// Subscribe 订阅一条AI回复消息的事件流
func (s *VideoChatService) Subscribe(messageID string) (<-chan model.ChatEvent, func()) {
	return s.bus.Subscribe(messageID)
}

// ActiveSnapshot 当前活跃生成的状态快照，SSE接入时用于补发现状
func (s *VideoChatService) ActiveSnapshot(messageID string) (video.SessionView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, gen := range s.active {
		if gen.sess.OwnerMessageID == messageID {
			return gen.sess.Snapshot(), true
		}
	}
	return video.SessionView{}, false
}

// Generate 发起一次AI视频回复生成。
// 同一聊天会话只保留最新一次生成：旧的轮询立即停掉，
// 旧会话迟到的tick通过身份校验全部忽略。
func (s *VideoChatService) Generate(ctx context.Context, req model.VideoChatRequest) (*model.VideoChatResponse, error) {
	if _, err := s.store.GetSession(req.SessionID); err != nil {
		return nil, err
	}

	msgContext := model.ChatContext(req.Context)
	if msgContext != model.ContextLive {
		msgContext = model.ContextChat
	}

	now := time.Now()
	userMsg := &model.Message{
		ID:        uuid.New().String(),
		SessionID: req.SessionID,
		Text:      req.Message,
		IsUser:    true,
		Timestamp: now,
		Context:   msgContext,
	}
	if err := s.store.AddMessage(req.SessionID, userMsg); err != nil {
		return nil, err
	}

	assistantMsg := &model.Message{
		ID:        uuid.New().String(),
		SessionID: req.SessionID,
		IsUser:    false,
		Timestamp: now,
		Context:   msgContext,
	}
	if err := s.store.AddMessage(req.SessionID, assistantMsg); err != nil {
		return nil, err
	}

	resp := &model.VideoChatResponse{
		SessionID:     req.SessionID,
		UserMessageID: userMsg.ID,
		MessageID:     assistantMsg.ID,
	}

	sess := video.NewGenerationSession(req.SessionID, req.ProfessionalID, assistantMsg.ID)

	// 新生成立刻接管当前指针，不等旧会话的终态
	if err := s.takeover(req.SessionID, sess); err != nil {
		return nil, err
	}

	// 知识库上下文是尽力而为的前置加工
	outbound := prependKnowledgeContext(ctx, s.retriever, req.ProfessionalID, req.Message)

	payload, err := s.api.CreateVideoChat(ctx, req.ProfessionalID, outbound)
	if err != nil {
		// 创建阶段不重试，失败直接回给用户（重试=用户重发）
		logger.Errorf("video chat create failed: %v", err)
		s.finalize(sess, video.OutcomeFailed, err)
		resp.Status = string(video.StatusFailed)
		return resp, err
	}

	status, raw := video.StatusFromPayload(payload)
	sess.SetStatus(status, raw)
	sess.MergeSources(video.ResolveSources(payload), false)
	sess.SetProgress(video.ExtractProgress(payload))
	sess.SetResponseText(s.script.Extract(payload))

	videoID := payload.FirstString(model.VideoIDAliases)
	resp.VideoID = videoID
	resp.Status = string(sess.Status())

	if text := sess.ResponseText(); text != "" {
		s.store.UpdateMessageVideo(req.SessionID, assistantMsg.ID, model.VideoUpdate{ResponseText: text})
	}

	switch {
	case videoID != "":
		// 交棒给轮询
		sess.VideoID = videoID
		s.store.UpdateMessageVideo(req.SessionID, assistantMsg.ID, model.VideoUpdate{VideoID: videoID})
		s.startPolling(sess)
		s.publishStatus(sess)

	case sess.Sources().Primary() != "":
		// 没有任务ID但地址已就绪，跳过轮询直接完成
		sess.Finish(video.OutcomePlayable)
		s.detach(sess)
		s.completePlayable(sess)
		resp.Status = string(video.StatusCompleted)

	default:
		s.finalize(sess, video.OutcomeFailed, video.ErrMissingIdentifiers)
		resp.Status = string(video.StatusFailed)
		return resp, video.ErrMissingIdentifiers
	}

	return resp, nil
}

// OnPlaybackReady 宿主UI上报“视频真正开始播放”。
// 原生播放器直接起动画；webview兜底播放器观察不到播放进度，
// 用固定静置延迟近似就绪。
func (s *VideoChatService) OnPlaybackReady(messageID string, webview bool) {
	s.bus.Publish(model.ChatEvent{
		Type:      "status",
		MessageID: messageID,
		Status:    "playback_ready",
	})

	if webview {
		time.AfterFunc(s.settle, func() {
			s.typing.Start(messageID)
		})
		return
	}

	s.typing.Start(messageID)
}

// CancelAnimation 单独取消某条消息的打字动画
func (s *VideoChatService) CancelAnimation(messageID string) {
	s.typing.Cancel(messageID)
}

// Close 视图销毁级清场：停掉所有轮询与动画计时器
func (s *VideoChatService) Close() {
	s.mu.Lock()
	s.closed = true
	pollers := make([]*video.Poller, 0, len(s.active))
	for _, gen := range s.active {
		if gen.poller != nil {
			pollers = append(pollers, gen.poller)
		}
	}
	s.active = make(map[string]*activeGeneration)
	s.mu.Unlock()

	s.cancel()
	for _, p := range pollers {
		p.Stop()
		p.Wait()
	}
	s.typing.CancelAll()
}

// takeover 注册新生成为当前指针，停掉同会话的旧轮询
func (s *VideoChatService) takeover(chatSessionID string, sess *video.GenerationSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New("video chat service closed")
	}

	if prev, ok := s.active[chatSessionID]; ok && prev.poller != nil {
		prev.poller.Stop()
	}
	s.active[chatSessionID] = &activeGeneration{sess: sess}
	return nil
}

func (s *VideoChatService) startPolling(sess *video.GenerationSession) {
	poller := video.NewPoller(s.api, s.script, s.pollCfg, sess, video.PollerHooks{
		OnUpdate: s.handleUpdate,
		OnFinish: s.handleFinish,
	})

	s.mu.Lock()
	gen, ok := s.active[sess.ChatSessionID]
	if !ok || gen.sess != sess {
		// 注册后到这里之间被更新的生成顶掉了
		s.mu.Unlock()
		return
	}
	gen.poller = poller
	s.mu.Unlock()

	poller.Start(s.baseCtx)
}

// isCurrent 迟到tick的身份校验：只有仍是当前指针的会话才允许产生副作用
func (s *VideoChatService) isCurrent(sess *video.GenerationSession) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	gen, ok := s.active[sess.ChatSessionID]
	return ok && gen.sess == sess
}

// handleUpdate 轮询中间态：进度与口播文本落库并广播
func (s *VideoChatService) handleUpdate(sess *video.GenerationSession) {
	if !s.isCurrent(sess) {
		return
	}

	view := sess.Snapshot()
	update := model.VideoUpdate{Progress: view.Progress}
	if view.ResponseText != "" {
		update.ResponseText = view.ResponseText
	}
	if err := s.store.UpdateMessageVideo(sess.ChatSessionID, sess.OwnerMessageID, update); err != nil {
		logger.Errorf("failed to persist poll update for message %s: %v", sess.OwnerMessageID, err)
	}

	s.publishStatus(sess)
}

// handleFinish 轮询终态。被顶掉的会话到这里被整体忽略。
func (s *VideoChatService) handleFinish(sess *video.GenerationSession, outcome video.Outcome, reason error) {
	if !s.detach(sess) {
		logger.Debugf("ignoring terminal state of superseded generation, video=%s", sess.VideoID)
		return
	}

	switch {
	case outcome.Playable():
		s.completePlayable(sess)
	case outcome == video.OutcomeUnplayable:
		s.completeFailed(sess, failureTextUnplayable, video.ErrMissingPlaybackURL)
	default:
		text := failureTextGeneric
		if errors.Is(reason, video.ErrPollingExhausted) || errors.Is(reason, video.ErrClientStatus) {
			text = failureTextStatus
		}
		s.completeFailed(sess, text, reason)
	}
}

// finalize 创建阶段的快速失败路径
func (s *VideoChatService) finalize(sess *video.GenerationSession, outcome video.Outcome, reason error) {
	sess.Finish(outcome)
	if !s.detach(sess) {
		return
	}
	s.completeFailed(sess, failureTextGeneric, reason)
}

// detach 从活跃表摘除，返回该会话此前是否仍是当前指针
func (s *VideoChatService) detach(sess *video.GenerationSession) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	gen, ok := s.active[sess.ChatSessionID]
	if !ok || gen.sess != sess {
		return false
	}
	delete(s.active, sess.ChatSessionID)
	return true
}

// completePlayable 可播终局：落播放地址、登记打字动画、广播video事件
func (s *VideoChatService) completePlayable(sess *video.GenerationSession) {
	view := sess.Snapshot()
	primary := view.Sources.Primary()

	update := model.VideoUpdate{
		VideoURL: primary,
		VideoID:  view.VideoID,
	}
	if view.ResponseText != "" {
		update.ResponseText = view.ResponseText
		update.Text = view.ResponseText
		update.SetText = true
	}
	if err := s.store.UpdateMessageVideo(sess.ChatSessionID, view.OwnerMessageID, update); err != nil {
		logger.Errorf("failed to persist completed video for message %s: %v", view.OwnerMessageID, err)
	}

	// 动画注册后等播放就绪信号再起跑
	if view.ResponseText != "" {
		s.typing.Register(view.OwnerMessageID, view.ResponseText, video.RegisterOptions{Script: true})
	}

	s.bus.Publish(model.ChatEvent{
		Type:      "video",
		MessageID: view.OwnerMessageID,
		Status:    string(view.Status),
		VideoURL:  primary,
		Text:      view.ResponseText,
		Done:      true,
	})

	logger.WithFields(map[string]interface{}{
		"message": view.OwnerMessageID,
		"video":   view.VideoID,
		"outcome": view.Outcome,
	}).Info("video reply ready")
}

// completeFailed 失败终局：气泡替换为失败文案，已捕获文本保留
func (s *VideoChatService) completeFailed(sess *video.GenerationSession, text string, reason error) {
	view := sess.Snapshot()

	if err := s.store.UpdateMessageText(sess.ChatSessionID, view.OwnerMessageID, text); err != nil {
		logger.Errorf("failed to persist failure for message %s: %v", view.OwnerMessageID, err)
	}
	if view.ResponseText != "" {
		if err := s.store.UpdateMessageVideo(sess.ChatSessionID, view.OwnerMessageID, model.VideoUpdate{
			ResponseText: view.ResponseText,
		}); err != nil {
			logger.Errorf("failed to persist captured text for message %s: %v", view.OwnerMessageID, err)
		}
	}

	errText := ""
	if reason != nil {
		errText = reason.Error()
	}
	s.bus.Publish(model.ChatEvent{
		Type:      "error",
		MessageID: view.OwnerMessageID,
		Status:    string(video.StatusFailed),
		Text:      text,
		Error:     errText,
		Done:      true,
	})

	logger.WithFields(map[string]interface{}{
		"message": view.OwnerMessageID,
		"video":   view.VideoID,
		"outcome": view.Outcome,
	}).Warnf("video generation failed: %v", reason)
}

func (s *VideoChatService) publishStatus(sess *video.GenerationSession) {
	view := sess.Snapshot()
	s.bus.Publish(model.ChatEvent{
		Type:      "status",
		MessageID: view.OwnerMessageID,
		Status:    string(view.Status),
		Progress:  view.Progress,
		Text:      view.ResponseText,
	})
}

// publishFrame 打字动画帧直通事件流
func (s *VideoChatService) publishFrame(frame video.Frame) {
	s.bus.Publish(model.ChatEvent{
		Type:      "typing",
		MessageID: frame.MessageID,
		Text:      frame.Displayed,
		Done:      frame.Done,
	})
}
