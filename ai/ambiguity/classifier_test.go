package ambiguity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyFollowupShortCircuit(t *testing.T) {
	tests := []string{
		"yes", "Yes", "ok", "okay", "continue", "go on", "tell me more",
		"thanks", "same", "k", "nice", "got it",
	}
	for _, query := range tests {
		t.Run(query, func(t *testing.T) {
			assessment := Classify(query)
			assert.Equal(t, DirectiveFollowup, assessment.Directive)
			assert.Empty(t, assessment.Reasons, "followup must skip ambiguity scoring")
			assert.Zero(t, assessment.Score)
		})
	}
}

func TestClassifyFollowupPatterns(t *testing.T) {
	tests := []string{
		"option a",
		"choice 2",
		"number 3",
		"42",
		"b",
		"the first one",
		"yes, the first one",
		"pick the second",
		"choose 1",
		"select the third",
	}
	for _, query := range tests {
		t.Run(query, func(t *testing.T) {
			assert.Equal(t, DirectiveFollowup, Classify(query).Directive)
		})
	}
}

func TestClassifyAmbiguous(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		reason string
	}{
		{"naked question word", "why", ReasonNakedQuestionWord},
		{"naked question word with punctuation", "what?", ReasonNakedQuestionWord},
		{"only pronouns", "it", ReasonOnlyPronouns},
		{"only pronouns phrase", "them", ReasonOnlyPronouns},
		{"ambiguous one word", "maybe", ReasonAmbiguousOneWord},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assessment := Classify(tt.query)
			assert.Equal(t, DirectiveAmbiguous, assessment.Directive)
			assert.Contains(t, assessment.Reasons, tt.reason)
		})
	}
}

func TestClassifyNormal(t *testing.T) {
	tests := []string{
		"What is pressure?",
		"How does photosynthesis convert light into chemical energy?",
		"Explain the difference between speed and velocity in detail",
	}
	for _, query := range tests {
		t.Run(query, func(t *testing.T) {
			assessment := Classify(query)
			assert.Equal(t, DirectiveNormal, assessment.Directive)
		})
	}
}

func TestClassifyScoreBounds(t *testing.T) {
	queries := []string{
		"", "it", "why", "what about", "so",
		"explain that thing you mean, clarify it",
		"What is the capital of France?",
	}
	for _, query := range queries {
		assessment := Classify(query)
		assert.GreaterOrEqual(t, assessment.Score, 0, "query %q", query)
		assert.LessOrEqual(t, assessment.Score, 100, "query %q", query)
	}
}

func TestClassifyScoreMonotonicity(t *testing.T) {
	t.Run("removing trailing question mark never decreases score", func(t *testing.T) {
		withMark := Classify("how does it work?")
		withoutMark := Classify("how does it work")
		assert.GreaterOrEqual(t, withoutMark.Score, withMark.Score)
	})

	t.Run("shorter query scores at least as high", func(t *testing.T) {
		long := Classify("how does gravity affect planetary orbits")
		short := Classify("how gravity")
		assert.GreaterOrEqual(t, short.Score, long.Score)
	})
}

func TestClassifyCorroboration(t *testing.T) {
	// Three or more independent signals flip the directive even without a
	// single dominant score contribution.
	assessment := Classify("and that stuff")
	assert.Equal(t, DirectiveAmbiguous, assessment.Directive)
	assert.GreaterOrEqual(t, len(assessment.Reasons), 3)
}

func TestClassifyFragment(t *testing.T) {
	assessment := Classify("kinetic energy formula derivation steps")
	assert.Contains(t, assessment.Reasons, ReasonIncompleteFrag)
}
