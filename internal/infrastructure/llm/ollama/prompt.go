package ollama

import (
	"fmt"
	"strings"

	"github.com/geogli/chatbot/internal/core/domain"
)

func buildAnswerPrompt(question string, chunks []domain.RetrievedChunk, history []domain.Turn) string {
	var sb strings.Builder
	sb.WriteString("You are an assistant answering questions about land degradation indicators.\n")
	sb.WriteString("Answer using only the provided context. If the context is insufficient, say so.\n\n")

	if len(history) > 0 {
		sb.WriteString("Conversation so far:\n")
		for _, turn := range history {
			sb.WriteString(fmt.Sprintf("%s: %s\n", turn.Role, turn.Content))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Context:\n")
	for i, rc := range chunks {
		sb.WriteString(fmt.Sprintf("[%d] (%s) %s\n", i+1, rc.Chunk.Meta.Source, rc.Chunk.Text))
	}

	sb.WriteString("\nQuestion: ")
	sb.WriteString(question)
	sb.WriteString("\nAnswer:")
	return sb.String()
}
