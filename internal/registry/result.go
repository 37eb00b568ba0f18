package registry

import (
	"encoding/json"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// TextResult is a successful result with a single text block.
func TextResult(text string) *sdkmcp.CallToolResult {
	return &sdkmcp.CallToolResult{Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: text}}}
}

// JSONResult renders v as indented JSON text and also attaches it as
// structured content.
func JSONResult(v any) (*sdkmcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return &sdkmcp.CallToolResult{
		Content:           []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
		StructuredContent: v,
	}, nil
}

// ErrorResult is a flagged error result carrying msg.
func ErrorResult(msg string) *sdkmcp.CallToolResult {
	return &sdkmcp.CallToolResult{
		IsError: true,
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: msg}},
	}
}

// defaultErrorFormatter turns any error into a flagged result with its message.
func defaultErrorFormatter(err error) *sdkmcp.CallToolResult {
	return ErrorResult(err.Error())
}

// ensureContent guarantees at least one content block.
func ensureContent(res *sdkmcp.CallToolResult) *sdkmcp.CallToolResult {
	if res == nil {
		return TextResult("")
	}
	if len(res.Content) > 0 {
		return res
	}
	text := ""
	if res.StructuredContent != nil {
		if data, err := json.Marshal(res.StructuredContent); err == nil {
			text = string(data)
		}
	}
	res.Content = []sdkmcp.Content{&sdkmcp.TextContent{Text: text}}
	return res
}
