package llm

import "strings"

// CleanJSONBlock strips a markdown code fence around a JSON answer. Models add
// ```json fences even when asked for bare JSON.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	body := strings.TrimPrefix(text, "```")
	// Drop a language tag such as "json" on the opening line.
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		tag := strings.TrimSpace(body[:nl])
		if tag == "" || (len(tag) < 20 && !strings.ContainsAny(tag, " {[")) {
			body = body[nl+1:]
		}
	}
	if end := strings.LastIndex(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// ExtractJSONObject returns the outermost {...} span of text, or text unchanged when
// there is none. It recovers answers where the model wrapped JSON in prose.
func ExtractJSONObject(text string) string {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return text
	}
	return text[start : end+1]
}
