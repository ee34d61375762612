// Package assembler turns retrieved evidence into a grounded prompt. It is
// pure string work: the correctness-critical rule is that the prompt never
// claims grounding it does not have.
package assembler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mentora/mentora/ai/ambiguity"
	"github.com/mentora/mentora/ai/memory"
	"github.com/mentora/mentora/ai/retrieval"
)

// NoMaterialNotice is emitted when no evidence of any kind is available.
const NoMaterialNotice = "No material was found in the student's notes, the tutor's notes, or past conversations. Answer from general knowledge and say so plainly."

// LastTurn is the immediately preceding exchange, when the caller named one.
type LastTurn struct {
	Query  string
	Answer string
}

// Input is everything the assembler works from.
type Input struct {
	Query       string
	Domain      string
	RequesterID int32
	KBChunks    []*retrieval.Chunk
	Memory      []*memory.Entry
	LastTurn    *LastTurn
}

// PromptContext is the assembled grounding text.
type PromptContext struct {
	Prompt   string
	Grounded bool
}

// Assemble groups knowledge chunks by owner, renders memory chronologically,
// and frames the question. With no evidence at all it emits the explicit
// no-material notice instead of fabricated grounding.
func Assemble(in *Input) *PromptContext {
	var studentChunks, tutorChunks []*retrieval.Chunk
	for _, chunk := range in.KBChunks {
		if chunk.OwnerID == in.RequesterID {
			studentChunks = append(studentChunks, chunk)
		} else {
			tutorChunks = append(tutorChunks, chunk)
		}
	}

	sections := []string{}
	if block := notesBlock("tutor_notes", tutorChunks); block != "" {
		sections = append(sections, block)
	}
	if block := notesBlock("student_notes", studentChunks); block != "" {
		sections = append(sections, block)
	}
	if block := memoryBlock(in.Memory, in.LastTurn); block != "" {
		sections = append(sections, block)
	}

	grounded := len(sections) > 0
	if !grounded {
		sections = append(sections, NoMaterialNotice)
	}

	var b strings.Builder
	if in.Domain != "" {
		fmt.Fprintf(&b, "Subject domain: %s\n\n", in.Domain)
	}
	b.WriteString(strings.Join(sections, "\n\n"))
	b.WriteString("\n\nQuestion: ")
	b.WriteString(in.Query)

	return &PromptContext{Prompt: b.String(), Grounded: grounded}
}

func notesBlock(tag string, chunks []*retrieval.Chunk) string {
	if len(chunks) == 0 {
		return ""
	}
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	return "<" + tag + ">\n\n" + strings.Join(texts, "\n\n") + "\n\n</" + tag + ">"
}

// memoryBlock renders remembered exchanges oldest first, then the explicit
// last turn.
func memoryBlock(entries []*memory.Entry, last *LastTurn) string {
	parts := []string{}

	if len(entries) > 0 {
		ordered := make([]*memory.Entry, len(entries))
		copy(ordered, entries)
		sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].CreatedTs < ordered[j].CreatedTs })

		texts := make([]string, len(ordered))
		for i, entry := range ordered {
			texts[i] = entry.Text
		}
		parts = append(parts, "<conversation>\n\n"+strings.Join(texts, "\n\n")+"\n\n</conversation>")
	}

	if last != nil {
		parts = append(parts, "<last_conversation>\n\nQ: "+last.Query+"\nA: "+last.Answer+"\n\n</last_conversation>")
	}

	return strings.Join(parts, "\n\n")
}

// Clarification picks a clarification question keyed by the assessment's
// trigger reasons.
func Clarification(reasons []string, query string) string {
	has := func(reason string) bool {
		for _, r := range reasons {
			if r == reason {
				return true
			}
		}
		return false
	}

	switch {
	case has(ambiguity.ReasonNakedQuestionWord):
		return fmt.Sprintf("I see you asked '%s'. Could you provide more context about what you'd like to know?", query)
	case has(ambiguity.ReasonContextDependent), has(ambiguity.ReasonOnlyPronouns):
		return "I need a bit more information. Could you clarify what you're referring to?"
	case has(ambiguity.ReasonIncompleteFrag):
		return "It looks like your message might be incomplete. Could you finish your thought?"
	case has(ambiguity.ReasonLacksSpecificity):
		return "Could you be more specific about what you're looking for?"
	default:
		return "I'm not quite sure what you mean. Could you provide more details?"
	}
}

// Continuation answers a followup reply without a generation round-trip.
func Continuation(last *LastTurn) string {
	if last != nil {
		return fmt.Sprintf("We left off at %q. Tell me which part to continue with, or ask the next thing on your mind.", last.Query)
	}
	return "There is no earlier answer to continue from yet. Ask me a question to get started."
}
