package generate

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"examgen-server/internal/model"
)

// ErrUnrepairable indicates no usable question could be extracted from a
// raw model response after the full repair cascade.
var ErrUnrepairable = errors.New("no usable questions in model response")

var (
	arrayPattern         = regexp.MustCompile(`(?s)\[.*\]`)
	trailingCommaPattern = regexp.MustCompile(`,\s*\]`)
	truncatedTailPattern = regexp.MustCompile(`,[^}]*$`)
	questionObjPattern   = regexp.MustCompile(`(?s)\{[^{}]*"question"[^{}]*\}`)
)

// RepairResponse extracts question drafts from raw model output. Models
// wrap JSON in fences, leave trailing commas, and truncate mid-array; each
// step of the cascade tolerates one class of damage. Returns
// ErrUnrepairable only when every step comes up empty.
func RepairResponse(raw string) ([]model.QuestionDraft, error) {
	content := strings.TrimSpace(raw)

	if m := arrayPattern.FindString(content); m != "" {
		content = m
	} else {
		content = stripFences(content)
	}

	content = trailingCommaPattern.ReplaceAllString(content, "]")

	// A response cut off mid-element: drop the incomplete tail and close
	// the array so the complete leading elements survive.
	if strings.HasPrefix(content, "[") && !strings.HasSuffix(content, "]") {
		content = truncatedTailPattern.ReplaceAllString(content, "")
		content += "]"
	}

	if drafts := parseDrafts(content); len(drafts) > 0 {
		return drafts, nil
	}

	// Structured parse failed. Salvage individual flat objects that carry
	// a "question" key and parse each independently.
	var salvaged []model.QuestionDraft
	for _, m := range questionObjPattern.FindAllString(content, -1) {
		var obj map[string]any
		if err := json.Unmarshal([]byte(m), &obj); err != nil {
			continue
		}
		if d, ok := normalizeDraft(obj); ok {
			salvaged = append(salvaged, d)
		}
	}
	if len(salvaged) > 0 {
		return salvaged, nil
	}

	return nil, ErrUnrepairable
}

func stripFences(content string) string {
	if idx := strings.Index(content, "```json"); idx >= 0 {
		content = content[idx+len("```json"):]
		if end := strings.Index(content, "```"); end >= 0 {
			content = content[:end]
		}
		return strings.TrimSpace(content)
	}
	if idx := strings.Index(content, "```"); idx >= 0 {
		content = content[idx+len("```"):]
		if end := strings.Index(content, "```"); end >= 0 {
			content = content[:end]
		}
		return strings.TrimSpace(content)
	}
	return content
}

// parseDrafts accepts a JSON array of question objects, or a single object
// wrapping such an array under a "questions" key.
func parseDrafts(content string) []model.QuestionDraft {
	var arr []map[string]any
	if err := json.Unmarshal([]byte(content), &arr); err != nil {
		var wrapper map[string]any
		if err := json.Unmarshal([]byte(content), &wrapper); err != nil {
			return nil
		}
		inner, ok := wrapper["questions"].([]any)
		if !ok {
			return nil
		}
		for _, item := range inner {
			if obj, ok := item.(map[string]any); ok {
				arr = append(arr, obj)
			}
		}
	}

	var drafts []model.QuestionDraft
	for _, obj := range arr {
		if d, ok := normalizeDraft(obj); ok {
			drafts = append(drafts, d)
		}
	}
	return drafts
}

// normalizeDraft maps the key synonyms seen in the wild ("question_text"
// vs "question", "type" vs "question_type") onto the canonical draft
// shape. Objects without question text are rejected.
func normalizeDraft(obj map[string]any) (model.QuestionDraft, bool) {
	d := model.QuestionDraft{
		Question:      firstString(obj, "question", "question_text", "text"),
		QuestionType:  firstString(obj, "question_type", "type"),
		CorrectAnswer: firstString(obj, "correct_answer", "correctAnswer", "answer"),
		Explanation:   firstString(obj, "explanation"),
		CourseOutcome: strings.ToUpper(firstString(obj, "course_outcome", "courseOutcome")),
	}
	if d.Question == "" {
		return model.QuestionDraft{}, false
	}

	if lvl := firstString(obj, "bloom_level", "blooms_level"); lvl != "" {
		d.BloomLevel = model.BloomLevel(lvl)
	}
	if marks, ok := obj["marks"].(float64); ok {
		d.Marks = int(marks)
	}
	if opts, ok := obj["options"].([]any); ok {
		for _, o := range opts {
			if s, ok := o.(string); ok {
				d.Options = append(d.Options, s)
			}
		}
	}
	// Some responses emit a weighted outcome map instead of a single tag;
	// keep the heaviest outcome.
	if d.CourseOutcome == "" {
		if weights, ok := obj["courseOutcomes"].(map[string]any); ok {
			d.CourseOutcome = strings.ToUpper(heaviestKey(weights))
		}
	}
	return d, true
}

func firstString(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := obj[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func heaviestKey(weights map[string]any) string {
	best := ""
	bestWeight := -1.0
	for k, v := range weights {
		w, ok := v.(float64)
		if !ok {
			continue
		}
		if w > bestWeight || (w == bestWeight && (best == "" || k < best)) {
			best = k
			bestWeight = w
		}
	}
	return best
}
