// Package ambiguity decides whether a query is interpretable in isolation.
// Classification is pure string heuristics: no I/O, no LLM round-trip, so it
// can run on every request before retrieval starts.
package ambiguity

import (
	"regexp"
	"strings"
)

// Directive tells the orchestrator how to treat a query.
type Directive string

const (
	// DirectiveNormal means the query stands on its own.
	DirectiveNormal Directive = "NORMAL"
	// DirectiveFollowup means the query continues the previous turn.
	DirectiveFollowup Directive = "FOLLOWUP"
	// DirectiveAmbiguous means the query cannot be interpreted without
	// conversation memory.
	DirectiveAmbiguous Directive = "AMBIGUOUS_NEED_MEMORY"
)

// Assessment is the classification result. Reasons are retained so that
// clarification templates and tests can see what triggered the directive.
type Assessment struct {
	Directive Directive
	Score     int
	Reasons   []string
}

const (
	ReasonAmbiguousOneWord  = "ambiguous_one_word"
	ReasonContextDependent  = "context_dependent"
	ReasonIncompleteFrag    = "incomplete_fragment"
	ReasonLacksSpecificity  = "lacks_specificity"
	ReasonHighScore         = "high_ambiguity_score"
	ReasonShortNonQuestion  = "short_non_question"
	ReasonNakedQuestionWord = "naked_question_word"
	ReasonOnlyPronouns      = "only_pronouns"
)

// followupKeywords is the closed continuation vocabulary. An exact match
// short-circuits classification: legitimate short replies must never be
// mistaken for ambiguity.
var followupKeywords = newSet(
	// Affirmations
	"yes", "yeah", "yep", "yup", "sure", "correct", "right", "exactly",
	"absolutely", "indeed", "affirmative", "uh huh", "mhm",
	// Negations
	"no", "nope", "nah", "not really", "incorrect", "wrong", "negative",
	// Acknowledgments
	"ok", "okay", "kay", "alright", "fine", "got it", "understood",
	"i see", "makes sense",
	// Continuation requests
	"done", "continue", "go on", "go ahead", "keep going", "proceed",
	"next", "move on", "carry on", "resume",
	// Expansion requests
	"explain more", "more", "tell me more", "elaborate", "expand",
	"more details", "more info", "give me more", "anything else",
	"what else", "more please",
	// Clarification requests
	"explain", "explain please", "clarify", "define", "define please",
	"what do you mean", "meaning", "elaborate please",
	// Examples requests
	"examples", "examples please", "example", "show me", "demonstrate",
	"give examples", "such as",
	// References
	"same", "that one", "this", "that", "this one", "the same",
	"like that", "similar", "same thing",
	// Agreement/completion
	"finished", "complete", "ready", "perfect", "good",
	"great", "thanks", "thank you", "ty",
	// Single word acknowledgments
	"k", "kk", "cool", "nice", "ok then",
)

// followupPatterns match "pick option N" style replies.
var followupPatterns = compileAll(
	`^(the|that|this)\s+(first|second|third|last|previous|next)\s+(one|option|choice)`,
	`^option\s+[a-z0-9]`,
	`^choice\s+\d+`,
	`^number\s+\d+`,
	`^\d+$`,
	`^[a-z]$`,
	`^(yes|yeah|yep),?\s+(the\s+)?(first|second|third|last|one)`,
	`^pick\s+(the\s+)?(first|second|third|one|\d+|[a-z])`,
	`^choose\s+(the\s+)?(first|second|third|one|\d+|[a-z])`,
	`^select\s+(the\s+)?(first|second|third|one|\d+|[a-z])`,
)

// ambiguousOneWords are single-word replies that need context to interpret.
var ambiguousOneWords = newSet(
	"why", "what", "how", "when", "where", "who", "which",
	"huh", "hm", "hmm", "eh",
	"idk", "dunno", "maybe", "perhaps", "possibly",
	"again", "repeat", "back", "return", "undo",
	"respond", "reply", "answer", "explain", "clarify", "define",
	"start", "begin", "go",
)

// vagueReferences are pronouns without clear antecedents.
var vagueReferences = newSet(
	"it", "that", "this", "those", "these", "them", "they",
	"he", "she", "him", "her", "something", "anything",
	"everything", "nothing", "someone", "anyone",
)

var questionWords = newSet("what", "why", "how", "when", "where", "who", "which")

// clarificationIndicators signal the user is asking what was meant.
var clarificationIndicators = []string{
	"mean", "meaning", "meant", "confused", "unclear",
	"understand", "get it", "follow", "sense", "clarify",
	"explain", "elaborate", "specify", "rephrase",
}

var incompletePatterns = compileAll(
	`^(but|and|or|so|because|if|when|while|although)\s*$`,
	`^(what about|how about|why not|what if)\s*$`,
	`^\.\.\.$`,
	`^-+$`,
)

var verbIndicators = newSet(
	"is", "are", "was", "were", "do", "does", "did",
	"have", "has", "had", "can", "could", "will", "would",
	"should", "must", "may", "might",
)

var connectors = newSet("and", "but", "or", "also", "plus", "additionally", "furthermore")

var deixis = newSet("here", "there", "now", "then", "today", "yesterday", "above", "below")

var vaguePhrases = []string{
	"stuff", "things", "something", "anything", "everything",
	"it", "that thing", "this thing", "you know",
	"like", "kind of", "sort of", "whatever",
}

var articles = newSet("the", "a", "an")

var articlesAndPossessives = newSet("the", "a", "an", "my", "your")

const punctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// Classify assesses one raw query. Followup detection runs before scoring;
// the priority order matters.
func Classify(query string) Assessment {
	query = strings.ToLower(strings.TrimSpace(query))
	cleanedQuery := strings.Trim(query, punctuation)

	words := strings.Fields(query)
	wordCount := len(words)

	assessment := Assessment{Directive: DirectiveNormal, Reasons: []string{}}

	if followupKeywords[cleanedQuery] || matchesAny(followupPatterns, query) {
		assessment.Directive = DirectiveFollowup
		return assessment
	}

	assessment.Score = score(query, words)
	reasons := []string{}

	if wordCount == 1 && ambiguousOneWords[cleanWord(words[0])] {
		reasons = append(reasons, ReasonAmbiguousOneWord)
		assessment.Directive = DirectiveAmbiguous
	}
	if hasContextDependency(words) {
		reasons = append(reasons, ReasonContextDependent)
	}
	if isFragment(query, words) {
		reasons = append(reasons, ReasonIncompleteFrag)
	}
	if lacksSpecificity(query, wordCount) {
		reasons = append(reasons, ReasonLacksSpecificity)
	}
	if assessment.Score >= 50 {
		reasons = append(reasons, ReasonHighScore)
		assessment.Directive = DirectiveAmbiguous
	}
	if wordCount <= 3 && !strings.HasSuffix(query, "?") {
		reasons = append(reasons, ReasonShortNonQuestion)
		if assessment.Score >= 30 {
			assessment.Directive = DirectiveAmbiguous
		}
	}
	if wordCount == 1 && questionWords[cleanWord(words[0])] {
		reasons = append(reasons, ReasonNakedQuestionWord)
		assessment.Directive = DirectiveAmbiguous
	}
	if wordCount > 0 && allWords(words, func(w string) bool {
		w = cleanWord(w)
		return vagueReferences[w] || articlesAndPossessives[w]
	}) {
		reasons = append(reasons, ReasonOnlyPronouns)
		assessment.Directive = DirectiveAmbiguous
	}

	// Corroboration beats any single signal: enough independent reasons make
	// the query ambiguous even with a moderate score.
	if len(reasons) >= 3 {
		assessment.Directive = DirectiveAmbiguous
	}

	assessment.Reasons = reasons
	return assessment
}

// score sums the weighted ambiguity contributions, clamped to [0, 100].
func score(query string, rawWords []string) int {
	words := make([]string, len(rawWords))
	for i, w := range rawWords {
		words[i] = cleanWord(w)
	}
	wordCount := len(words)
	total := 0

	// Very short non-question.
	if wordCount <= 3 && !strings.HasSuffix(query, "?") {
		total += 30
	}
	// Single word, unless it is itself a followup word.
	if wordCount == 1 {
		total += 20
		if followupKeywords[query] {
			total -= 40
		}
	}
	// Vague pronouns in a short query.
	if wordCount <= 5 {
		for _, w := range words {
			if vagueReferences[w] {
				total += 15
			}
		}
	}
	// Question word without proper question structure.
	if anyWords(words, func(w string) bool { return questionWords[w] }) {
		if wordCount <= 2 {
			total += 25
		} else if !strings.HasSuffix(query, "?") {
			total += 15
		}
	}
	// Clarification-seeking vocabulary.
	for _, indicator := range clarificationIndicators {
		if strings.Contains(query, indicator) {
			total += 20
			break
		}
	}
	// Entirely pronouns and articles.
	if wordCount > 0 && allWords(words, func(w string) bool { return vagueReferences[w] || articles[w] }) {
		total += 30
	}
	// Incomplete sentence.
	if matchesAny(incompletePatterns, query) {
		total += 25
	}
	// Multi-word query with no substantial word.
	if wordCount > 1 && !anyWords(words, func(w string) bool { return len(w) > 4 }) {
		total += 15
	}

	if total < 0 {
		total = 0
	}
	if total > 100 {
		total = 100
	}
	return total
}

// hasContextDependency reports whether the query leans on prior turns: a high
// pronoun ratio, a leading connector, or short deictic phrasing.
func hasContextDependency(words []string) bool {
	if len(words) == 0 {
		return false
	}

	vague := 0
	for _, w := range words {
		if vagueReferences[w] {
			vague++
		}
	}
	if float64(vague)/float64(len(words)) > 0.5 {
		return true
	}

	if connectors[words[0]] {
		return true
	}

	if len(words) <= 4 && anyWords(words, func(w string) bool { return deixis[w] }) {
		return true
	}
	return false
}

// isFragment reports whether the query looks like an unfinished sentence.
func isFragment(query string, words []string) bool {
	if len(words) >= 2 {
		hasVerb := anyWords(words, func(w string) bool { return verbIndicators[w] })
		if !hasVerb && !strings.HasSuffix(query, "?") {
			return true
		}
	}

	if len(words) > 0 {
		switch words[len(words)-1] {
		case "and", "or", "but", "with", "of", "to", "for", "in", "on":
			return true
		}
	}
	return false
}

func lacksSpecificity(query string, wordCount int) bool {
	if wordCount > 6 {
		return false
	}
	for _, phrase := range vaguePhrases {
		if strings.Contains(query, phrase) {
			return true
		}
	}
	return false
}

func cleanWord(word string) string {
	return strings.Trim(word, punctuation)
}

func matchesAny(patterns []*regexp.Regexp, query string) bool {
	for _, pattern := range patterns {
		if pattern.MatchString(query) {
			return true
		}
	}
	return false
}

func anyWords(words []string, pred func(string) bool) bool {
	for _, w := range words {
		if pred(w) {
			return true
		}
	}
	return false
}

func allWords(words []string, pred func(string) bool) bool {
	for _, w := range words {
		if !pred(w) {
			return false
		}
	}
	return true
}

func newSet(items ...string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}

func compileAll(exprs ...string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(exprs))
	for i, expr := range exprs {
		patterns[i] = regexp.MustCompile(`(?i)` + expr)
	}
	return patterns
}
