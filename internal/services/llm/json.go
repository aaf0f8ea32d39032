package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
)

const snippetLimit = 160

// DecodeLLMJSON decodes a JSON object from model output. Arguments wrapped
// in a Markdown fence or surrounded by prose are tolerated.
func DecodeLLMJSON(content string, target any) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return errors.New("empty payload")
	}
	var firstErr error
	for _, candidate := range payloadCandidates(trimmed) {
		err := json.Unmarshal([]byte(candidate), target)
		if err == nil {
			return nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return fmt.Errorf("%w (payload snippet: %s)", firstErr, summarizePayloadSnippet(trimmed))
}

// payloadCandidates lists the distinct readings of content to try, most
// literal first: as given, without a code fence, then the outermost object.
func payloadCandidates(content string) []string {
	candidates := []string{content}
	add := func(candidate string) {
		candidate = strings.TrimSpace(candidate)
		if candidate != "" && !slices.Contains(candidates, candidate) {
			candidates = append(candidates, candidate)
		}
	}
	unfenced := stripCodeFenceBlock(content)
	add(unfenced)
	if start := strings.IndexByte(unfenced, '{'); start >= 0 {
		if end := strings.LastIndexByte(unfenced, '}'); end > start {
			add(unfenced[start : end+1])
		}
	}
	return candidates
}

func stripCodeFenceBlock(content string) string {
	body, fenced := strings.CutPrefix(strings.TrimSpace(content), "```")
	if !fenced {
		return content
	}
	body = strings.TrimLeft(body, " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = body[4:]
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

// summarizePayloadSnippet collapses whitespace and truncates to snippetLimit runes.
func summarizePayloadSnippet(content string) string {
	clean := strings.Join(strings.Fields(content), " ")
	if clean == "" {
		return "<empty>"
	}
	if runes := []rune(clean); len(runes) > snippetLimit {
		clean = string(runes[:snippetLimit]) + "..."
	}
	return clean
}
