// Package gencli builds command-line invocations for the external generation
// tool. Everything here is pure: conversation in, argv out.
package gencli

import (
	"strings"

	"geminid/pkg/types"
)

// Role labels the tool expects in a flattened prompt.
const (
	labelSystem    = "System Instruction:"
	labelUser      = "User:"
	labelAssistant = "Model:"
)

func roleLabel(role string) string {
	switch role {
	case "system":
		return labelSystem
	case "assistant":
		return labelAssistant
	default:
		// user and anything the validation layer let through
		return labelUser
	}
}

// BuildPrompt flattens a conversation into the single prompt string the tool
// takes on its command line: each turn prefixed with its role label, turns
// joined by a blank line.
func BuildPrompt(conv types.Conversation) string {
	parts := make([]string, 0, len(conv))
	for _, m := range conv {
		parts = append(parts, roleLabel(m.Role)+" "+m.Content)
	}
	return strings.Join(parts, "\n\n")
}

// BuildArgs returns the tool's argument vector for one generation: the model
// selection flag, the flattened prompt, and the streaming output flag when a
// live event stream was requested.
func BuildArgs(conv types.Conversation, model string, stream bool) []string {
	args := []string{"-m", model, "-p", BuildPrompt(conv)}
	if stream {
		args = append(args, "--output-format", "stream-json")
	}
	return args
}
