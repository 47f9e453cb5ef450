package generation

import (
	"bytes"
	"fmt"

	"github.com/shelfsense/backend/internal/domain"
)

// chatRequest is an OpenAI-compatible chat completion request in JSON mode
type chatRequest struct {
	Model          string           `json:"model"`
	Messages       []domain.Message `json:"messages"`
	ResponseFormat responseFormat   `json:"response_format"`
	Temperature    float64          `json:"temperature"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Message      domain.Message `json:"message"`
	FinishReason string         `json:"finish_reason"`
}

func newChatRequest(model string, messages []domain.Message) chatRequest {
	return chatRequest{
		Model:          model,
		Messages:       messages,
		ResponseFormat: responseFormat{Type: "json_object"},
	}
}

// extractContent returns the JSON document carried by the first choice.
// Some models wrap JSON in a markdown fence even in JSON mode.
func extractContent(resp *chatResponse) ([]byte, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: response has no choices", domain.ErrGenerationFailed)
	}

	content := bytes.TrimSpace([]byte(resp.Choices[0].Message.Content))
	content = stripFence(content)
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: empty completion (finish reason %q)",
			domain.ErrGenerationFailed, resp.Choices[0].FinishReason)
	}
	return content, nil
}

func stripFence(content []byte) []byte {
	if !bytes.HasPrefix(content, []byte("```")) {
		return content
	}
	content = bytes.TrimPrefix(content, []byte("```"))
	if nl := bytes.IndexByte(content, '\n'); nl >= 0 {
		content = content[nl+1:] // language tag line
	} else {
		content = nil
	}
	content = bytes.TrimSpace(content)
	content = bytes.TrimSuffix(content, []byte("```"))
	return bytes.TrimSpace(content)
}
