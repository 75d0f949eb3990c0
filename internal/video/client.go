package video

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/jaydheshiv/uyir-sub000/internal/config"
	"github.com/jaydheshiv/uyir-sub000/internal/model"
	"github.com/jaydheshiv/uyir-sub000/internal/utils"
)

// PlatformAPI video_chat上游的两个操作，poller与service只依赖该接口
type PlatformAPI interface {
	CreateVideoChat(ctx context.Context, professionalID, message string) (model.VideoChatPayload, error)
	VideoChatStatus(ctx context.Context, professionalID, videoID string) (model.VideoChatPayload, error)
}

// PlatformClient uyir平台REST客户端。
// 请求超时由HTTP客户端统一兜底，轮询层不再叠加单次超时。
type PlatformClient struct {
	baseURL  string
	apiToken string
	client   *http.Client
}

func NewPlatformClient(cfg config.PlatformConfig) *PlatformClient {
	return &PlatformClient{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiToken: cfg.APIToken,
		client:   utils.NewHTTPClient(cfg.Timeout),
	}
}

// CreateVideoChat 发起生成请求 POST /professionals/{id}/video_chat/create
func (c *PlatformClient) CreateVideoChat(ctx context.Context, professionalID, message string) (model.VideoChatPayload, error) {
	endpoint := fmt.Sprintf("%s/professionals/%s/video_chat/create",
		c.baseURL, url.PathEscape(professionalID))

	body, err := json.Marshal(map[string]string{"message": message})
	if err != nil {
		return model.VideoChatPayload{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return model.VideoChatPayload{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return model.VideoChatPayload{}, fmt.Errorf("video chat create request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.VideoChatPayload{}, fmt.Errorf("read create response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return model.VideoChatPayload{}, fmt.Errorf("video chat create returned %d", resp.StatusCode)
	}

	// JSON损坏按空载荷处理，后续的字段提取自然落空
	return model.ParseVideoChatPayload(raw), nil
}

// VideoChatStatus 查询任务状态 GET /professionals/{id}/video_chat/status/{video_id}
func (c *PlatformClient) VideoChatStatus(ctx context.Context, professionalID, videoID string) (model.VideoChatPayload, error) {
	endpoint := fmt.Sprintf("%s/professionals/%s/video_chat/status/%s",
		c.baseURL, url.PathEscape(professionalID), url.PathEscape(videoID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.VideoChatPayload{}, err
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return model.VideoChatPayload{}, fmt.Errorf("video chat status request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.VideoChatPayload{}, fmt.Errorf("read status response: %w", err)
	}

	// 4xx意味着任务不存在或请求已失效，重试无意义
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return model.VideoChatPayload{}, fmt.Errorf("%w: http %d", ErrClientStatus, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return model.VideoChatPayload{}, fmt.Errorf("video chat status returned %d", resp.StatusCode)
	}

	return model.ParseVideoChatPayload(raw), nil
}

func (c *PlatformClient) authorize(req *http.Request) {
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}
}
