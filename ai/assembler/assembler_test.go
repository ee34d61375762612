package assembler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mentora/mentora/ai/ambiguity"
	"github.com/mentora/mentora/ai/memory"
	"github.com/mentora/mentora/ai/retrieval"
)

func TestAssembleGroupsByOwner(t *testing.T) {
	ctx := Assemble(&Input{
		Query:       "What is pressure?",
		RequesterID: 1,
		KBChunks: []*retrieval.Chunk{
			{Text: "my own note", OwnerID: 1},
			{Text: "tutor material", OwnerID: 2},
		},
	})

	assert.True(t, ctx.Grounded)
	assert.Contains(t, ctx.Prompt, "<student_notes>")
	assert.Contains(t, ctx.Prompt, "my own note")
	assert.Contains(t, ctx.Prompt, "<tutor_notes>")
	assert.Contains(t, ctx.Prompt, "tutor material")
	assert.Contains(t, ctx.Prompt, "Question: What is pressure?")

	// Tutor material must not leak into the student block.
	studentBlock := between(ctx.Prompt, "<student_notes>", "</student_notes>")
	assert.NotContains(t, studentBlock, "tutor material")
}

func TestAssembleMemoryChronological(t *testing.T) {
	ctx := Assemble(&Input{
		Query:       "continue",
		RequesterID: 1,
		Memory: []*memory.Entry{
			{Text: "Q: newer\nA: b", CreatedTs: 200},
			{Text: "Q: older\nA: a", CreatedTs: 100},
		},
		LastTurn: &LastTurn{Query: "last q", Answer: "last a"},
	})

	assert.Contains(t, ctx.Prompt, "<conversation>")
	assert.Less(t, strings.Index(ctx.Prompt, "Q: older"), strings.Index(ctx.Prompt, "Q: newer"))
	assert.Contains(t, ctx.Prompt, "<last_conversation>")
	assert.Contains(t, ctx.Prompt, "Q: last q")
}

func TestAssembleNoMaterialHonesty(t *testing.T) {
	ctx := Assemble(&Input{Query: "What is entropy?", RequesterID: 1})

	assert.False(t, ctx.Grounded)
	assert.Contains(t, ctx.Prompt, NoMaterialNotice)
	assert.NotContains(t, ctx.Prompt, "<student_notes>")
	assert.NotContains(t, ctx.Prompt, "<tutor_notes>")
	assert.NotContains(t, ctx.Prompt, "<conversation>")
}

func TestAssembleDomainHeader(t *testing.T) {
	ctx := Assemble(&Input{Query: "q", Domain: "physics", RequesterID: 1})
	assert.Contains(t, ctx.Prompt, "Subject domain: physics")
}

func TestClarification(t *testing.T) {
	tests := []struct {
		name    string
		reasons []string
		want    string
	}{
		{"naked question word", []string{ambiguity.ReasonNakedQuestionWord}, "Could you provide more context"},
		{"context dependent", []string{ambiguity.ReasonContextDependent}, "what you're referring to"},
		{"only pronouns", []string{ambiguity.ReasonOnlyPronouns}, "what you're referring to"},
		{"incomplete fragment", []string{ambiguity.ReasonIncompleteFrag}, "finish your thought"},
		{"lacks specificity", []string{ambiguity.ReasonLacksSpecificity}, "more specific"},
		{"default", []string{}, "provide more details"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, Clarification(tt.reasons, "why"), tt.want)
		})
	}
}

func TestContinuation(t *testing.T) {
	t.Run("with last turn", func(t *testing.T) {
		text := Continuation(&LastTurn{Query: "what is heat", Answer: "energy transfer"})
		assert.Contains(t, text, "what is heat")
	})

	t.Run("without last turn", func(t *testing.T) {
		assert.NotEmpty(t, Continuation(nil))
	})
}

func between(s, start, end string) string {
	i := strings.Index(s, start)
	j := strings.Index(s, end)
	if i < 0 || j < 0 || j < i {
		return ""
	}
	return s[i+len(start) : j]
}
