package video

import (
	"strings"

	"github.com/jaydheshiv/uyir-sub000/internal/model"
)

// defaultBoilerplate 后端在脚本字段里夹带的套话应答。
// 精确匹配（忽略大小写和首尾空白），命中则跳过该候选字段。
// 目前只收录英文原话，本地化应答的处理待产品定论。
var defaultBoilerplate = []string{
	"your request has processed successfully",
	"your request has been processed successfully",
	"request processed successfully",
	"video generated successfully",
	"success!",
	"success",
	"completed!",
	"completed",
	"done",
	"ok",
}

// ScriptExtractor 从生成应答中提取口播文本
type ScriptExtractor struct {
	denylist map[string]struct{}
}

// NewScriptExtractor 创建提取器，extra追加到内置套话名单
func NewScriptExtractor(extra ...string) *ScriptExtractor {
	deny := make(map[string]struct{}, len(defaultBoilerplate)+len(extra))
	for _, phrase := range defaultBoilerplate {
		deny[strings.ToLower(phrase)] = struct{}{}
	}
	for _, phrase := range extra {
		deny[strings.ToLower(strings.TrimSpace(phrase))] = struct{}{}
	}
	return &ScriptExtractor{denylist: deny}
}

// Extract 按优先级尝试别名字段：脚本类字段在先，泛用字段兜底。
// 套话命中的候选被跳过，继续看下一个；全部落空返回空串。
func (e *ScriptExtractor) Extract(p model.VideoChatPayload) string {
	for _, path := range model.ScriptTextAliases {
		v, ok := p.Lookup(path)
		if !ok {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if e.denied(s) {
			continue
		}
		return s
	}
	return ""
}

func (e *ScriptExtractor) denied(s string) bool {
	_, hit := e.denylist[strings.ToLower(s)]
	return hit
}
