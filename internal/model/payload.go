package model

import (
	"encoding/json"
	"strings"
)

// VideoChatPayload 上游video_chat接口的宽松载荷视图。
// 后端返回的字段名存在多套别名（蛇形/驼峰、平铺/data嵌套），
// 且整体可能包在tavus_response一层里。这里只做一次解包，
// 字段层面的取值统一走别名路径查找。
type VideoChatPayload struct {
	root map[string]interface{}
}

// ParseVideoChatPayload 宽容解析：JSON损坏视同空载荷，不报错
func ParseVideoChatPayload(body []byte) VideoChatPayload {
	var root map[string]interface{}
	if err := json.Unmarshal(body, &root); err != nil {
		return VideoChatPayload{}
	}

	// 可选的tavus_response包装层
	if inner, ok := root["tavus_response"].(map[string]interface{}); ok {
		root = inner
	}

	return VideoChatPayload{root: root}
}

// PayloadFromMap 测试和本地构造用
func PayloadFromMap(m map[string]interface{}) VideoChatPayload {
	if inner, ok := m["tavus_response"].(map[string]interface{}); ok {
		m = inner
	}
	return VideoChatPayload{root: m}
}

func (p VideoChatPayload) Empty() bool {
	return len(p.root) == 0
}

// Lookup 按点号路径取值，支持data.xxx一级嵌套及更深层
func (p VideoChatPayload) Lookup(path string) (interface{}, bool) {
	if p.root == nil {
		return nil, false
	}

	cur := interface{}(p.root)
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// FirstValue 返回别名列表中第一个命中的值
func (p VideoChatPayload) FirstValue(paths []string) (interface{}, bool) {
	for _, path := range paths {
		if v, ok := p.Lookup(path); ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// FirstString 返回别名列表中第一个非空字符串，去除首尾空白
func (p VideoChatPayload) FirstString(paths []string) string {
	for _, path := range paths {
		v, ok := p.Lookup(path)
		if !ok {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// 字段别名表。版本化维护：后端每次改字段名只在这里追加，
// 轮询与解析逻辑不感知具体字段名。
var (
	StatusAliases = []string{
		"status", "data.status", "state", "data.state",
	}

	VideoIDAliases = []string{
		"video_id", "videoId", "data.video_id", "data.videoId",
	}

	StreamURLAliases = []string{
		"stream_url", "streamUrl", "data.stream_url", "data.streamUrl",
	}

	DownloadURLAliases = []string{
		"download_url", "downloadUrl", "data.download_url", "data.downloadUrl",
	}

	HostedURLAliases = []string{
		"hosted_url", "hostedUrl", "data.hosted_url", "data.hostedUrl",
	}

	ProgressAliases = []string{
		"progress", "progress_percent", "progressPercent",
		"generation_progress", "percent_complete",
		"data.progress", "data.progress_percent", "data.generation_progress",
	}

	// 脚本类字段优先于泛用字段，顺序即优先级
	ScriptTextAliases = []string{
		"processed_text", "data.processed_text",
		"script", "data.script",
		"generated_output", "data.generated_output",
		"transcript", "data.transcript",
		"response", "data.response",
		"message", "data.message",
		"text", "data.text",
	}
)
