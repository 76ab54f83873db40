package profile

import (
	"fmt"

	"github.com/xaenox/mindmesh-bot/internal/models"
)

const systemPromptTemplate = `You are a personal learning assistant for a user named %s.

Knowledge profile:
%s

Learning profile:
%s

Use this information to tailor your responses: build on their background, follow their preferred explanation style, tone and level of detail, and quiz or encourage them only if they asked for it.`

// BuildSystemPrompt assembles the system message that opens every transcript.
// The description blocks are embedded verbatim.
func BuildSystemPrompt(username, knowledgeText, learnerText string) models.Message {
	return models.Message{
		Role:    models.RoleSystem,
		Content: fmt.Sprintf(systemPromptTemplate, username, knowledgeText, learnerText),
	}
}
