package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/jaydheshiv/uyir-sub000/internal/config"
	"github.com/jaydheshiv/uyir-sub000/internal/utils"
	"github.com/jaydheshiv/uyir-sub000/pkg/logger"
)

// ContextRetriever 知识库检索协作方。检索结果会拼接到
// 发往上游的消息文本前；本子系统只消费，不负责检索实现细节。
type ContextRetriever interface {
	Retrieve(ctx context.Context, professionalID, query string) ([]string, error)
}

// HTTPKnowledgeClient 平台知识库搜索接口的HTTP实现
type HTTPKnowledgeClient struct {
	baseURL     string
	maxSnippets int
	client      *http.Client
}

func NewHTTPKnowledgeClient(cfg config.KnowledgeConfig) *HTTPKnowledgeClient {
	return &HTTPKnowledgeClient{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		maxSnippets: cfg.MaxSnippets,
		client:      utils.NewHTTPClient(cfg.Timeout),
	}
}

type knowledgeSearchResponse struct {
	Results []struct {
		Content string `json:"content"`
		Snippet string `json:"snippet"`
	} `json:"results"`
}

func (c *HTTPKnowledgeClient) Retrieve(ctx context.Context, professionalID, query string) ([]string, error) {
	endpoint := fmt.Sprintf("%s/search?professional_id=%s&q=%s",
		c.baseURL, url.QueryEscape(professionalID), url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("knowledge search returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var parsed knowledgeSearchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, err
	}

	snippets := make([]string, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		text := strings.TrimSpace(r.Content)
		if text == "" {
			text = strings.TrimSpace(r.Snippet)
		}
		if text == "" {
			continue
		}
		snippets = append(snippets, text)
		if len(snippets) >= c.maxSnippets {
			break
		}
	}

	return snippets, nil
}

// prependKnowledgeContext 尽力而为：检索失败时原样返回消息
func prependKnowledgeContext(ctx context.Context, retriever ContextRetriever, professionalID, message string) string {
	if retriever == nil {
		return message
	}

	snippets, err := retriever.Retrieve(ctx, professionalID, message)
	if err != nil {
		logger.Warnf("knowledge retrieval failed, sending message as-is: %v", err)
		return message
	}
	if len(snippets) == 0 {
		return message
	}

	var sb strings.Builder
	sb.WriteString("Context:\n")
	for _, s := range snippets {
		sb.WriteString("- ")
		sb.WriteString(s)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(message)
	return sb.String()
}
