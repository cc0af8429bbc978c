package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kailas-cloud/chatdex/internal/domain"
)

// responseToolName is the function the model is asked to call so the answer
// and its reasoning come back as separate structured fields.
const responseToolName = "generate_response_and_reasoning"

const responseToolDescription = "Generates a response to the user's query " +
	"and provides a step-by-step reasoning for the answer."

// toolSchema is the JSON Schema for the response tool parameters, shared by
// every provider.
type toolSchema struct {
	Type       string                  `json:"type"`
	Properties map[string]toolProperty `json:"properties"`
	Required   []string                `json:"required"`
}

type toolProperty struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

func responseToolSchema() toolSchema {
	return toolSchema{
		Type: "object",
		Properties: map[string]toolProperty{
			"response": {
				Type:        "string",
				Description: "The answer or response to the user's query.",
			},
			"reasoning": {
				Type: "string",
				Description: "A step-by-step explanation or reasoning for the answer provided. " +
					"Do not disclose that past QnA were referred.",
			},
		},
		Required: []string{"response", "reasoning"},
	}
}

// parseToolArguments decodes the tool call arguments into a generation
// result. The response field is mandatory; reasoning may be absent.
func parseToolArguments(raw []byte) (domain.GenerationResult, error) {
	var args struct {
		Response  string `json:"response"`
		Reasoning string `json:"reasoning"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return domain.GenerationResult{}, fmt.Errorf("decode tool arguments: %w", err)
	}
	if strings.TrimSpace(args.Response) == "" {
		return domain.GenerationResult{}, fmt.Errorf("tool arguments missing response field")
	}
	return domain.GenerationResult{
		Answer:    strings.TrimSpace(args.Response),
		Reasoning: strings.TrimSpace(args.Reasoning),
	}, nil
}

// parsePlainContent splits a free-text completion into answer and reasoning
// when the model ignored the tool and answered inline.
func parsePlainContent(content string) domain.GenerationResult {
	content = strings.TrimSpace(content)
	for _, marker := range []string{"Reasoning:", "Explanation:"} {
		if idx := strings.Index(content, marker); idx >= 0 {
			return domain.GenerationResult{
				Answer:    strings.TrimSpace(content[:idx]),
				Reasoning: strings.TrimSpace(content[idx+len(marker):]),
			}
		}
	}
	return domain.GenerationResult{Answer: content}
}
