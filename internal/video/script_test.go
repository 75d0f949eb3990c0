package video

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jaydheshiv/uyir-sub000/internal/model"
)

func TestScriptExtract_DenylistOnlyCandidate(t *testing.T) {
	e := NewScriptExtractor()
	p := model.PayloadFromMap(map[string]interface{}{
		"message": "Your request has processed successfully",
	})

	assert.Equal(t, "", e.Extract(p))
}

func TestScriptExtract_RealText(t *testing.T) {
	e := NewScriptExtractor()
	p := model.PayloadFromMap(map[string]interface{}{
		"message": "Try journaling before bed.",
	})

	assert.Equal(t, "Try journaling before bed.", e.Extract(p))
}

func TestScriptExtract_DenylistCaseInsensitive(t *testing.T) {
	e := NewScriptExtractor()
	p := model.PayloadFromMap(map[string]interface{}{
		"message": "SUCCESS!",
	})

	assert.Equal(t, "", e.Extract(p))
}

func TestScriptExtract_SkipsBoilerplateForNextCandidate(t *testing.T) {
	e := NewScriptExtractor()
	p := model.PayloadFromMap(map[string]interface{}{
		"processed_text": "Completed!",
		"message":        "Here is what I would suggest.",
	})

	assert.Equal(t, "Here is what I would suggest.", e.Extract(p))
}

func TestScriptExtract_ScriptFieldBeatsGeneric(t *testing.T) {
	e := NewScriptExtractor()
	p := model.PayloadFromMap(map[string]interface{}{
		"message": "generic ack text",
		"script":  "The actual spoken script.",
	})

	assert.Equal(t, "The actual spoken script.", e.Extract(p))
}

func TestScriptExtract_NestedField(t *testing.T) {
	e := NewScriptExtractor()
	p := model.PayloadFromMap(map[string]interface{}{
		"data": map[string]interface{}{
			"transcript": "Nested transcript text.",
		},
	})

	assert.Equal(t, "Nested transcript text.", e.Extract(p))
}

func TestScriptExtract_ExtraDenylist(t *testing.T) {
	e := NewScriptExtractor("video wurde erstellt")
	p := model.PayloadFromMap(map[string]interface{}{
		"message": "Video wurde erstellt",
	})

	assert.Equal(t, "", e.Extract(p))
}

func TestScriptExtract_NothingUsable(t *testing.T) {
	e := NewScriptExtractor()
	p := model.PayloadFromMap(map[string]interface{}{
		"status": "completed",
		"text":   "   ",
	})

	assert.Equal(t, "", e.Extract(p))
}
