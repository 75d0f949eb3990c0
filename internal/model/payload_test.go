package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseVideoChatPayload_Flat(t *testing.T) {
	p := ParseVideoChatPayload([]byte(`{"status":"processing","video_id":"v1","stream_url":"https://x/a.mp4"}`))

	assert.False(t, p.Empty())
	assert.Equal(t, "processing", p.FirstString(StatusAliases))
	assert.Equal(t, "v1", p.FirstString(VideoIDAliases))
	assert.Equal(t, "https://x/a.mp4", p.FirstString(StreamURLAliases))
}

func TestParseVideoChatPayload_TavusWrapper(t *testing.T) {
	p := ParseVideoChatPayload([]byte(`{"tavus_response":{"status":"ready","videoId":"v2","hostedUrl":"https://x/page"}}`))

	assert.Equal(t, "ready", p.FirstString(StatusAliases))
	assert.Equal(t, "v2", p.FirstString(VideoIDAliases))
	assert.Equal(t, "https://x/page", p.FirstString(HostedURLAliases))
}

func TestParseVideoChatPayload_DataNested(t *testing.T) {
	p := ParseVideoChatPayload([]byte(`{"data":{"status":"queued","download_url":"https://x/d.mp4"}}`))

	assert.Equal(t, "queued", p.FirstString(StatusAliases))
	assert.Equal(t, "https://x/d.mp4", p.FirstString(DownloadURLAliases))
}

func TestParseVideoChatPayload_MalformedIsEmpty(t *testing.T) {
	p := ParseVideoChatPayload([]byte(`{"status": `))

	assert.True(t, p.Empty())
	assert.Equal(t, "", p.FirstString(StatusAliases))

	_, ok := p.Lookup("status")
	assert.False(t, ok)
}

func TestFirstString_SkipsEmptyAndWhitespace(t *testing.T) {
	p := PayloadFromMap(map[string]interface{}{
		"stream_url": "   ",
		"data": map[string]interface{}{
			"stream_url": "https://x/real.mp4",
		},
	})

	assert.Equal(t, "https://x/real.mp4", p.FirstString(StreamURLAliases))
}

func TestFirstString_TrimsValue(t *testing.T) {
	p := PayloadFromMap(map[string]interface{}{
		"video_id": "  v9  ",
	})

	assert.Equal(t, "v9", p.FirstString(VideoIDAliases))
}

func TestLookup_NonMapIntermediate(t *testing.T) {
	p := PayloadFromMap(map[string]interface{}{
		"data": "not a map",
	})

	_, ok := p.Lookup("data.status")
	assert.False(t, ok)
}

func TestScriptAliasOrder_ScriptFieldsFirst(t *testing.T) {
	// processed_text必须排在泛用message之前
	seen := map[string]int{}
	for i, path := range ScriptTextAliases {
		seen[path] = i
	}
	assert.Less(t, seen["processed_text"], seen["message"])
	assert.Less(t, seen["script"], seen["response"])
	assert.Less(t, seen["transcript"], seen["text"])
}
