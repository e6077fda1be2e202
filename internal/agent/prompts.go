package agent

import (
	"fmt"
	"strings"

	"github.com/abhilash2429/Artrix-AI/internal/knowledge"
	"github.com/abhilash2429/Artrix-AI/internal/session"
	"github.com/abhilash2429/Artrix-AI/internal/tenant"
)

const (
	escalationAcknowledgement = "I'm connecting you with a member of our support team who can help you further. They'll have the full context of this conversation."

	handoffAcknowledgement = "This conversation has been handed to our support team. A human agent will follow up with you shortly."

	closedSessionMessage = "This conversation has ended. Please start a new conversation and we'll be happy to help."

	genericFailureMessage = "Something went wrong on our side. Please try sending your message again."
)

// personaPrompt builds the system prompt for conversational and answer
// generation from the tenant's configuration.
func personaPrompt(p tenant.Policy) string {
	var b strings.Builder
	name := p.PersonaName
	if name == "" {
		name = "the support assistant"
	}
	fmt.Fprintf(&b, "You are %s, a customer support assistant", name)
	if p.Vertical != "" {
		fmt.Fprintf(&b, " for a %s company", p.Vertical)
	}
	b.WriteString(".\n")
	if p.PersonaDescription != "" {
		b.WriteString(p.PersonaDescription)
		b.WriteString("\n")
	}
	if len(p.AllowedTopics) > 0 {
		fmt.Fprintf(&b, "You help with: %s.\n", strings.Join(p.AllowedTopics, ", "))
	}
	b.WriteString("Be concise, warm, and professional. Never invent information.")
	return b.String()
}

// conversationalPrompt renders the bounded history plus the new message.
func conversationalPrompt(history []session.Exchange, message string) string {
	var b strings.Builder
	for _, exchange := range history {
		fmt.Fprintf(&b, "User: %s\nAssistant: %s\n", exchange.UserMessage, exchange.AssistantMessage)
	}
	fmt.Fprintf(&b, "User: %s\nAssistant:", message)
	return b.String()
}

// answerPrompt renders the grounded answer instruction with the top
// chunks. The model must answer only from this material.
func answerPrompt(message string, candidates []knowledge.Candidate) string {
	var b strings.Builder
	b.WriteString("Answer the customer's question using ONLY the knowledge base excerpts below. ")
	b.WriteString("If the excerpts do not fully cover the question, say what you know from them and nothing more.\n\n")
	for i, c := range candidates {
		heading := c.Chunk.SectionHeading
		if heading == "" {
			heading = c.Chunk.DocumentID
		}
		fmt.Fprintf(&b, "[%d] %s\n%s\n\n", i+1, heading, c.Chunk.Text)
	}
	fmt.Fprintf(&b, "Question: %s", message)
	return b.String()
}

// outOfScopeResponse is the fixed redirect template naming the tenant's
// allowed topics.
func outOfScopeResponse(p tenant.Policy) string {
	if len(p.AllowedTopics) == 0 {
		return "I can only help with questions about our products and services. Is there something in that area I can help you with?"
	}
	return fmt.Sprintf(
		"I can only help with questions about %s. Is there something in one of those areas I can help you with?",
		strings.Join(p.AllowedTopics, ", "),
	)
}
