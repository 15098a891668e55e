package tools

import (
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"whistlemcp/internal/domain"
)

func textResult(structured any) *mcp.CallToolResult {
	text := ""
	if raw, err := json.Marshal(structured); err == nil {
		text = string(raw)
	}
	return &mcp.CallToolResult{
		Content:           []mcp.Content{&mcp.TextContent{Text: text}},
		StructuredContent: structured,
	}
}

// errorResult renders a failure as a structured tool result instead of
// a protocol fault, so callers always get a parseable envelope.
func errorResult(err error, payload any) *mcp.CallToolResult {
	code, ok := domain.CodeFrom(err)
	if !ok {
		code = domain.CodeInternal
	}
	body := map[string]any{
		"success": false,
		"code":    string(code),
		"error":   domain.MessageFrom(err),
	}
	if payload != nil {
		body["payload"] = payload
	}
	res := textResult(body)
	res.IsError = true
	return res
}

func decodeArgs(req *mcp.CallToolRequest, out any) error {
	if len(req.Params.Arguments) == 0 {
		return nil
	}
	if err := json.Unmarshal(req.Params.Arguments, out); err != nil {
		return domain.E(domain.CodeInvalidArgument, "tools.decode",
			fmt.Sprintf("invalid arguments: %v", err), err)
	}
	return nil
}
