package openai

import (
	sdk "github.com/openai/openai-go/v2"

	"ragcore/internal/llm"
)

// AdaptMessages converts portable llm.Message history to OpenAI SDK message
// params. Only system/assistant/user roles are meaningful here — this
// client carries no tool-calling surface.
func AdaptMessages(msgs []llm.Message) []sdk.ChatCompletionMessageParamUnion {
	out := make([]sdk.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		content := m.Content
		if content == "" {
			content = " "
		}
		switch m.Role {
		case "system":
			if m.Content == "" {
				content = "You are a helpful assistant."
			}
			out = append(out, sdk.SystemMessage(content))
		case "assistant":
			out = append(out, sdk.AssistantMessage(content))
		default:
			out = append(out, sdk.UserMessage(content))
		}
	}
	return out
}
