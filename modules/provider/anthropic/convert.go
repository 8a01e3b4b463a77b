package anthropic

import (
	"encoding/json"
	"log/slog"
	"strings"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/flemzord/sweagent/internal/provider"
	"github.com/flemzord/sweagent/internal/tool"
)

// convertRequest transforms a CompletionRequest into Anthropic SDK parameters.
// System messages are pulled out of the conversation into the System field.
func convertRequest(req provider.CompletionRequest, params provider.ModelParameters, logger *slog.Logger) sdkanthropic.MessageNewParams {
	system, messages := splitSystemMessages(req.Messages)

	out := sdkanthropic.MessageNewParams{
		Model:       sdkanthropic.Model(params.Model),
		MaxTokens:   int64(params.MaxTokens),
		Messages:    convertMessages(messages, logger),
		System:      system,
		Temperature: sdkanthropic.Float(params.Temperature),
	}
	if params.TopP > 0 {
		out.TopP = sdkanthropic.Float(params.TopP)
	}
	if params.TopK > 0 {
		out.TopK = sdkanthropic.Int(int64(params.TopK))
	}
	if len(params.StopSequences) > 0 {
		out.StopSequences = params.StopSequences
	}
	if len(req.Tools) > 0 {
		out.Tools = convertTools(req.Tools)
	}
	return out
}

// splitSystemMessages moves every system message into Anthropic's System
// parameter and returns the rest of the conversation in order.
func splitSystemMessages(msgs []provider.LLMMessage) ([]sdkanthropic.TextBlockParam, []provider.LLMMessage) {
	var system []sdkanthropic.TextBlockParam
	rest := make([]provider.LLMMessage, 0, len(msgs))
	for _, m := range msgs {
		if m.Role != provider.MessageRoleSystem {
			rest = append(rest, m)
			continue
		}
		if m.Content != "" {
			system = append(system, sdkanthropic.TextBlockParam{Text: m.Content})
		}
	}
	return system, rest
}

// convertMessages transforms conversation messages into SDK message params.
// Consecutive messages of the same role are merged into one message, so
// the tool results of a turn travel together in a single user message and
// an assistant reply keeps its text and tool_use blocks side by side.
func convertMessages(msgs []provider.LLMMessage, logger *slog.Logger) []sdkanthropic.MessageParam {
	var result []sdkanthropic.MessageParam

	for i, msg := range msgs {
		role, block, ok := convertMessage(msg)
		if !ok {
			if logger != nil {
				logger.Warn("dropping message without content", "index", i, "role", msg.Role)
			}
			continue
		}
		if n := len(result); n > 0 && result[n-1].Role == role {
			result[n-1].Content = append(result[n-1].Content, block)
			continue
		}
		result = append(result, sdkanthropic.MessageParam{
			Role:    role,
			Content: []sdkanthropic.ContentBlockParamUnion{block},
		})
	}

	return result
}

func convertMessage(msg provider.LLMMessage) (sdkanthropic.MessageParamRole, sdkanthropic.ContentBlockParamUnion, bool) {
	switch {
	case msg.ToolResult != nil:
		r := *msg.ToolResult
		return sdkanthropic.MessageParamRoleUser,
			sdkanthropic.NewToolResultBlock(r.CallID, provider.ToolResultText(r), !r.Success),
			true

	case msg.ToolCall != nil:
		args := msg.ToolCall.Arguments
		if args == nil {
			args = map[string]any{}
		}
		return sdkanthropic.MessageParamRoleAssistant,
			sdkanthropic.NewToolUseBlock(msg.ToolCall.CallID, args, msg.ToolCall.Name),
			true

	case msg.Content == "":
		return "", sdkanthropic.ContentBlockParamUnion{}, false

	case msg.Role == provider.MessageRoleAssistant:
		return sdkanthropic.MessageParamRoleAssistant, sdkanthropic.NewTextBlock(msg.Content), true

	default:
		return sdkanthropic.MessageParamRoleUser, sdkanthropic.NewTextBlock(msg.Content), true
	}
}

// convertTools transforms tool definitions into SDK tool params.
func convertTools(defs []tool.Definition) []sdkanthropic.ToolUnionParam {
	result := make([]sdkanthropic.ToolUnionParam, len(defs))
	for i, d := range defs {
		t := &sdkanthropic.ToolParam{
			Name:        d.Name,
			InputSchema: convertInputSchema(d.InputSchema),
		}
		if d.Description != "" {
			t.Description = sdkanthropic.String(d.Description)
		}
		result[i] = sdkanthropic.ToolUnionParam{OfTool: t}
	}
	return result
}

// convertInputSchema converts a JSON schema object into the SDK's
// ToolInputSchemaParam. Fields beyond "properties" and "required" are
// preserved via ExtraFields.
func convertInputSchema(schema map[string]any) sdkanthropic.ToolInputSchemaParam {
	param := sdkanthropic.ToolInputSchemaParam{}
	extra := make(map[string]any, len(schema))

	for k, v := range schema {
		switch k {
		case "properties":
			param.Properties = v
		case "required":
			param.Required = stringList(v)
		case "type":
			// Always "object"; the SDK sets it.
		default:
			extra[k] = v
		}
	}
	if len(extra) > 0 {
		param.ExtraFields = extra
	}
	return param
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// convertResponse transforms an SDK Message into a CompletionResponse.
// Text blocks are concatenated and tool_use blocks become tool calls.
func convertResponse(msg *sdkanthropic.Message, logger *slog.Logger) provider.CompletionResponse {
	var content strings.Builder
	var calls []tool.Call

	for _, block := range msg.Content {
		switch v := block.AsAny().(type) {
		case sdkanthropic.TextBlock:
			content.WriteString(v.Text)
		case sdkanthropic.ToolUseBlock:
			args := map[string]any{}
			if len(v.Input) > 0 {
				if err := json.Unmarshal(v.Input, &args); err != nil && logger != nil {
					logger.Warn("tool_use input is not a JSON object", "tool", v.Name, "error", err)
				}
			}
			calls = append(calls, tool.Call{CallID: v.ID, Name: v.Name, Arguments: args})
		}
	}

	return provider.CompletionResponse{
		Content:      content.String(),
		Model:        string(msg.Model),
		FinishReason: string(msg.StopReason),
		ToolCalls:    calls,
		Usage: &provider.Usage{
			InputTokens:              int(msg.Usage.InputTokens),
			OutputTokens:             int(msg.Usage.OutputTokens),
			CacheCreationInputTokens: int(msg.Usage.CacheCreationInputTokens),
			CacheReadInputTokens:     int(msg.Usage.CacheReadInputTokens),
		},
	}
}
