package provider

import (
	"strings"

	"github.com/casualjim/hoot/messages"
)

// Entry is a transcript line in the shape every backend accepts.
type Entry struct {
	Role    messages.Role
	Content string
}

// Transcript normalizes history plus the current message into alternating-friendly
// entries. Only RoleUser and RoleAssistant are produced: tool output and system notes
// become user entries with a prefix. Empty turns are skipped. The current message is
// appended unless the last history entry already is that exact user message.
func Transcript(history []messages.Turn, message string) []Entry {
	entries := make([]Entry, 0, len(history)+1)
	for _, t := range history {
		content := strings.TrimSpace(t.Content)
		if content == "" {
			continue
		}
		switch t.Role {
		case messages.RoleAssistant:
			entries = append(entries, Entry{Role: messages.RoleAssistant, Content: content})
		case messages.RoleTool:
			entries = append(entries, Entry{Role: messages.RoleUser, Content: "Tool " + t.ToolName + " returned: " + content})
		case messages.RoleSystem:
			entries = append(entries, Entry{Role: messages.RoleUser, Content: "System note: " + content})
		default:
			entries = append(entries, Entry{Role: messages.RoleUser, Content: content})
		}
	}

	message = strings.TrimSpace(message)
	if message == "" {
		return entries
	}
	if n := len(entries); n > 0 && entries[n-1].Role == messages.RoleUser && entries[n-1].Content == message {
		return entries
	}
	return append(entries, Entry{Role: messages.RoleUser, Content: message})
}

// Merge collapses consecutive entries with the same role into one entry, joining the
// content with a blank line. Backends that require strict user/assistant alternation
// use it on top of Transcript.
func Merge(entries []Entry) []Entry {
	if len(entries) == 0 {
		return nil
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if n := len(out); n > 0 && out[n-1].Role == e.Role {
			out[n-1].Content += "\n\n" + e.Content
			continue
		}
		out = append(out, e)
	}
	return out
}
