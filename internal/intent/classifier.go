package intent

import (
	"context"
	"fmt"
	"strings"

	"github.com/abhilash2429/Artrix-AI/pkg/llm"
	"github.com/abhilash2429/Artrix-AI/pkg/logging"
)

// Type is the per-turn intent category.
type Type string

const (
	Conversational Type = "conversational"
	DomainQuery    Type = "domain_query"
	OutOfScope     Type = "out_of_scope"
)

const classifyMaxTokens = 20

const classifyTemplate = `You are an intent classifier for a %s customer support assistant.
The assistant can discuss these topics: %s.

Classify the user message into exactly one category:
- conversational: greetings, thanks, chit-chat, follow-up pleasantries
- domain_query: a question about the supported topics that needs the knowledge base
- out_of_scope: a request outside the supported topics

Respond with only the category name, nothing else.

User message: %s`

const classifyRetryTemplate = `Classify the message into one of exactly these three words:
conversational
domain_query
out_of_scope

Output one of those words and nothing else.

Message: %s`

// Classifier assigns one of three intent labels to a user message with a
// single cheap generation call. It never fails: any unparseable or errored
// classification falls back to domain_query so a legitimate question is
// never dropped.
type Classifier struct {
	provider llm.Provider
	logger   logging.Logger
}

func NewClassifier(provider llm.Provider, logger logging.Logger) *Classifier {
	return &Classifier{provider: provider, logger: logger}
}

// Classify returns the intent for a message, scoped by the tenant's
// vertical and allowed topics.
func (c *Classifier) Classify(ctx context.Context, message, vertical string, allowedTopics []string) Type {
	topics := strings.Join(allowedTopics, ", ")
	if topics == "" {
		topics = "general product support"
	}

	prompt := fmt.Sprintf(classifyTemplate, vertical, topics, message)
	if intent, ok := c.classifyOnce(ctx, prompt); ok {
		return intent
	}

	// One stricter retry before giving up on parsing.
	if intent, ok := c.classifyOnce(ctx, fmt.Sprintf(classifyRetryTemplate, message)); ok {
		return intent
	}

	c.logger.WithFields(logging.Fields{"vertical": vertical}).
		Warn("Intent classification unparseable, defaulting to domain_query")
	return DomainQuery
}

func (c *Classifier) classifyOnce(ctx context.Context, prompt string) (Type, bool) {
	result, err := c.provider.Generate(ctx, llm.GenerateRequest{
		Prompt:    prompt,
		MaxTokens: classifyMaxTokens,
	})
	if err != nil {
		c.logger.WithError(err).Warn("Intent classification call failed")
		return "", false
	}
	return ParseLabel(result.Text)
}

// ParseLabel normalizes raw model output and matches it against the three
// labels, exactly or by unambiguous prefix of at least 4 characters.
func ParseLabel(raw string) (Type, bool) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.Trim(normalized, `."'!:`)
	normalized = strings.ReplaceAll(normalized, " ", "_")
	if normalized == "" {
		return "", false
	}

	labels := []Type{Conversational, DomainQuery, OutOfScope}
	for _, label := range labels {
		if normalized == string(label) {
			return label, true
		}
	}
	if len(normalized) < 4 {
		return "", false
	}

	var match Type
	for _, label := range labels {
		if strings.HasPrefix(string(label), normalized) {
			if match != "" {
				return "", false
			}
			match = label
		}
	}
	if match == "" {
		return "", false
	}
	return match, true
}
