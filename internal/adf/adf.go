// Package adf flattens Atlassian Document Format trees into plain text.
package adf

import (
	"encoding/json"
	"strings"
)

// Node is a single ADF node. Only the fields needed for text extraction are decoded.
type Node struct {
	Type    string         `json:"type"`
	Text    string         `json:"text,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []Node         `json:"content,omitempty"`
}

// ExtractText decodes raw JSON and flattens it. The payload may be an ADF
// document, a bare string (API v2 style bodies) or null. Malformed input
// yields an empty string.
func ExtractText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	return Text(v)
}

// Text flattens an already decoded value: a depth-first walk collecting every
// leaf text node, joined with single spaces and trimmed.
func Text(v any) string {
	var parts []string
	collect(v, &parts)
	return strings.TrimSpace(strings.Join(parts, " "))
}

func collect(v any, parts *[]string) {
	switch node := v.(type) {
	case string:
		if s := strings.TrimSpace(node); s != "" {
			*parts = append(*parts, s)
		}
	case []any:
		for _, child := range node {
			collect(child, parts)
		}
	case map[string]any:
		collectNode(node, parts)
	case Node:
		collectTyped(node, parts)
	case *Node:
		if node != nil {
			collectTyped(*node, parts)
		}
	}
}

func collectNode(node map[string]any, parts *[]string) {
	if text, ok := node["text"].(string); ok {
		collect(text, parts)
		return
	}
	// Cards and mentions carry their text in attrs instead of a text leaf.
	if attrs, ok := node["attrs"].(map[string]any); ok {
		if leaf := attrText(node["type"], attrs); leaf != "" {
			*parts = append(*parts, leaf)
			return
		}
	}
	if content, ok := node["content"].([]any); ok {
		collect(content, parts)
	}
}

func collectTyped(node Node, parts *[]string) {
	if node.Text != "" {
		collect(node.Text, parts)
		return
	}
	if leaf := attrText(node.Type, node.Attrs); leaf != "" {
		*parts = append(*parts, leaf)
		return
	}
	for _, child := range node.Content {
		collectTyped(child, parts)
	}
}

func attrText(nodeType any, attrs map[string]any) string {
	if attrs == nil {
		return ""
	}
	switch nodeType {
	case "inlineCard", "blockCard", "embedCard":
		url, _ := attrs["url"].(string)
		return strings.TrimSpace(url)
	case "mention", "emoji", "status":
		text, _ := attrs["text"].(string)
		return strings.TrimSpace(text)
	}
	return ""
}

// Document wraps plain text into a minimal ADF document, one paragraph per
// non-empty line.
func Document(text string) Node {
	doc := Node{Type: "doc"}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		doc.Content = append(doc.Content, Node{
			Type:    "paragraph",
			Content: []Node{{Type: "text", Text: line}},
		})
	}
	if len(doc.Content) == 0 {
		doc.Content = []Node{{Type: "paragraph"}}
	}
	return doc
}

// MarshalJSON adds the document version required by the API on the root node.
func (n Node) MarshalJSON() ([]byte, error) {
	type plain Node
	if n.Type != "doc" {
		return json.Marshal(plain(n))
	}
	return json.Marshal(struct {
		Version int `json:"version"`
		plain
	}{Version: 1, plain: plain(n)})
}
