package core

import (
	"regexp"
	"strings"
)

var agentPrefixRe = regexp.MustCompile(`^(Agent [AB]):\s*`)

// ParseAgentPrefix splits a leading "Agent A:"/"Agent B:" speaker tag off a
// message body. When no tag is present the full content is returned with an
// empty agent.
func ParseAgentPrefix(content string) (agent, body string) {
	m := agentPrefixRe.FindStringSubmatch(content)
	if m == nil {
		return "", content
	}
	return m[1], strings.TrimSpace(content[len(m[0]):])
}

// SpeakerOf resolves the speaking agent of a transcript message, preferring
// the explicit tag and falling back to a prefix in the content. Returns ""
// for system/user messages and untagged content.
func SpeakerOf(msg Message) string {
	if msg.Role == RoleSystem || msg.Role == RoleUser {
		return ""
	}
	if msg.Agent == AgentA || msg.Agent == AgentB {
		return msg.Agent
	}
	agent, _ := ParseAgentPrefix(msg.Content)
	return agent
}

// BodyOf returns a message's content with any speaker prefix removed.
func BodyOf(msg Message) string {
	_, body := ParseAgentPrefix(msg.Content)
	return body
}
