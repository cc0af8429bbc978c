// Package llm adapts chat-completion providers to the domain generation
// contracts. All providers receive the same prompt; only the wire protocol
// differs per provider.
package llm

import (
	"strings"

	"github.com/kailas-cloud/chatdex/internal/domain"
)

// generationInstructions pin the answer to retrieved context. The refusal
// sentence is part of the product contract, do not reword it.
const generationInstructions = `Based on the above, provide a helpful, accurate, and concise answer to the user's query.
Instructions to follow strictly:
1. You must ONLY use information from the relevant QnA and the past conversation above.
2. If the answer is not present in the provided QnA examples or chat history, respond with: 'I'm sorry, I do not have enough information to answer that question.'
3. Do NOT use any external knowledge or make up information.`

const summarizationInstructions = `You are a helpful assistant that summarizes the user's latest query as crisply and concisely as possible.
Point of view is from the user's perspective.

Example Chat history:
USER: I'm having trouble logging in.
ASSISTANT: Could you please describe the issue.
USER: I see 'unable to login' in the error message.
Summarized query: While logging in, I am seeing 'unable to login' in the error message.`

// BuildGenerationPrompt assembles the grounded answering prompt: summarized
// query, retrieved QnA context, chat history, then the instruction block.
func BuildGenerationPrompt(req domain.GenerationRequest) string {
	var parts []string

	if req.SummarizedQuery != "" {
		parts = append(parts, "Summarised user query: "+req.SummarizedQuery+"\n")
	}

	if len(req.Documents) > 0 {
		lines := make([]string, 0, len(req.Documents))
		for _, doc := range req.Documents {
			lines = append(lines, "- "+doc.CompositeText())
		}
		parts = append(parts, "Relevant QnA to refer:\n"+strings.Join(lines, "\n")+"\n")
	}

	if len(req.History) > 0 {
		parts = append(parts, "Chat history:")
		for _, msg := range req.History {
			parts = append(parts, roleTitle(msg.Role)+": "+msg.Content)
		}
		parts = append(parts, "")
	}

	parts = append(parts, generationInstructions)
	return strings.Join(parts, "\n")
}

// BuildSummarizationPrompt assembles the query condensation prompt from the
// chat history.
func BuildSummarizationPrompt(history []domain.Message) string {
	parts := []string{summarizationInstructions, "", "Chat history:"}
	for _, msg := range history {
		parts = append(parts, roleTitle(msg.Role)+": "+msg.Content)
	}
	parts = append(parts, "", "Summarize the user's latest query, crisp and detailed.")
	return strings.Join(parts, "\n")
}

func roleTitle(role string) string {
	if role == "" {
		return "User"
	}
	return strings.ToUpper(role[:1]) + role[1:]
}
