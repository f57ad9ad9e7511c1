package estimator

import (
	"regexp"
	"strings"
)

// Complexity is a coarse estimate of how demanding a query is.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

const (
	highWordThreshold   = 50
	mediumWordThreshold = 20
)

// Terms holds the keyword sets that push a query into a higher complexity bucket.
type Terms struct {
	Complexity []string
	Code       []string
}

// DefaultTerms returns the built-in keyword sets.
func DefaultTerms() Terms {
	return Terms{
		Complexity: []string{"technical", "complex", "analysis", "detailed", "comprehensive"},
		Code:       []string{"code", "function", "algorithm", "programming"},
	}
}

// Classifier buckets queries by word count and keyword presence.
// A keyword matches anywhere in the query, ignoring case, so "algorithms"
// contains "algorithm". Only the configured terms count: "detail" alone does
// not contain "detailed".
type Classifier struct {
	complexity *regexp.Regexp
	code       *regexp.Regexp
}

// NewClassifier compiles the given term sets. An empty set never matches.
func NewClassifier(terms Terms) *Classifier {
	return &Classifier{
		complexity: compileTerms(terms.Complexity),
		code:       compileTerms(terms.Code),
	}
}

func compileTerms(terms []string) *regexp.Regexp {
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(t))
	}
	if len(quoted) == 0 {
		return nil
	}
	return regexp.MustCompile(`(?i)(?:` + strings.Join(quoted, "|") + `)`)
}

func matches(re *regexp.Regexp, s string) bool {
	return re != nil && re.MatchString(s)
}

// Classify returns the complexity bucket for query. Empty input is low.
func (c *Classifier) Classify(query string) Complexity {
	wc := wordCount(query)

	if wc > highWordThreshold || matches(c.code, query) {
		return ComplexityHigh
	}
	if wc > mediumWordThreshold || matches(c.complexity, query) {
		return ComplexityMedium
	}
	return ComplexityLow
}

var defaultClassifier = NewClassifier(DefaultTerms())

// ClassifyComplexity classifies query with the default term sets.
func ClassifyComplexity(query string) Complexity {
	return defaultClassifier.Classify(query)
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
