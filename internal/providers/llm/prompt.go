package llm

import (
	"fmt"
	"strings"

	"github.com/sandevgo/tuskthread/internal/core"
)

const (
	replyInstructions = `You are TuskThread, a careful assistant in a long running conversation.
Only part of the conversation is shown verbatim. Older turns appear as archive summaries, and turns
the user explicitly refers back to are quoted in full. Answer the latest user message.`

	digestInstructions = `Summarize the conversation turns below for later reference.
Keep every topic, name and number that was discussed. Write plain sentences, no markdown, at most
one short paragraph per turn, and prefix each with its turn number like [turn 4].`
)

// Render turns a payload into a system prompt and chat messages. Reply
// payloads carry the context window; digest payloads carry the turns of one
// archive segment.
func Render(p core.Payload) (string, []message) {
	if p.Kind == core.PayloadDigest {
		return digestInstructions, []message{{Role: core.RoleUser, Content: renderTurns(p.Turns)}}
	}

	var system strings.Builder
	system.WriteString(replyInstructions)

	if len(p.Window.ArchiveSummaries) > 0 {
		system.WriteString("\n\nArchived earlier turns:")
		for _, s := range p.Window.ArchiveSummaries {
			fmt.Fprintf(&system, "\n- turns %d-%d: %s", s.StartTurn, s.EndTurn, s.Summary)
		}
	}

	if len(p.Window.Retrieved) > 0 {
		system.WriteString("\n\nEarlier turns the user refers to, quoted in full:")
		for _, r := range p.Window.Retrieved {
			fmt.Fprintf(&system, "\n\n[message %d]\nUser: %s\nAssistant: %s", r.Position, r.Version.UserMessage, r.Version.AssistantMessage)
		}
	}

	messages := make([]message, 0, 2*len(p.Window.Hot)+1)
	for _, v := range p.Window.Hot {
		messages = append(messages,
			message{Role: core.RoleUser, Content: v.UserMessage},
			message{Role: core.RoleAssistant, Content: v.AssistantMessage},
		)
	}
	messages = append(messages, message{Role: core.RoleUser, Content: p.Message})

	return system.String(), messages
}

func renderTurns(turns []core.Version) string {
	var b strings.Builder
	for i, v := range turns {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[turn %d]\nUser: %s\nAssistant: %s", v.TurnID, v.UserMessage, v.AssistantMessage)
	}
	return b.String()
}
