package agent

import "strings"

// humanRequestPhrases are checked against the normalized message. Phrase
// matching lives here rather than in the classifier so an explicit handoff
// request short-circuits on any branch.
var humanRequestPhrases = []string{
	"talk to a human",
	"talk to a person",
	"talk to someone",
	"speak to a human",
	"speak to a person",
	"speak to someone",
	"speak with a human",
	"speak with an agent",
	"talk to an agent",
	"real person",
	"real human",
	"human agent",
	"live agent",
	"human support",
	"human being",
	"connect me to a human",
	"transfer me to an agent",
	"i want a human",
	"i need a human",
	"get me a human",
	"customer service representative",
}

// isHumanRequest reports whether the user is explicitly asking for a
// human agent.
func isHumanRequest(message string) bool {
	normalized := strings.ToLower(strings.Join(strings.Fields(message), " "))
	for _, phrase := range humanRequestPhrases {
		if strings.Contains(normalized, phrase) {
			return true
		}
	}
	return false
}
