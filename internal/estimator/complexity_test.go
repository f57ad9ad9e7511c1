package estimator

import (
	"strings"
	"testing"
)

func words(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = "word"
	}
	return strings.Join(w, " ")
}

func TestClassifyComplexity(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  Complexity
	}{
		{"empty", "", ComplexityLow},
		{"whitespace only", "   \t\n ", ComplexityLow},
		{"short plain", "What is artificial intelligence?", ComplexityLow},
		{"twenty words", words(20), ComplexityLow},
		{"twenty one words", words(21), ComplexityMedium},
		{"fifty words", words(50), ComplexityMedium},
		{"fifty one words", words(51), ComplexityHigh},
		{"sixty words", words(60), ComplexityHigh},
		{"algorithm short", "explain this algorithm", ComplexityHigh},
		{"algorithm upper", "ALGORITHM please", ComplexityHigh},
		{"code term", "review my code", ComplexityHigh},
		{"programming term", "Programming tips", ComplexityHigh},
		{"complexity term", "a detailed answer", ComplexityMedium},
		{"complexity term mixed case", "Comprehensive overview", ComplexityMedium},
		{"partial word does not match", "Explain quantum computing in detail", ComplexityLow},
		{"complexity term inside longer word", "time complexity", ComplexityMedium},
		{"plural code term", "sorting algorithms", ComplexityHigh},
		{"prefixed code term", "Algorithmic trading", ComplexityHigh},
		{"code term inside compound", "my codebase", ComplexityHigh},
		{"plural function", "define functions", ComplexityHigh},
		{"technically", "technically speaking", ComplexityMedium},
		{"code beats complexity term", "detailed code review", ComplexityHigh},
		{"punctuation", "analysis, please", ComplexityMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyComplexity(tt.query); got != tt.want {
				t.Errorf("ClassifyComplexity(%q) = %s, want %s", tt.query, got, tt.want)
			}
		})
	}
}

func TestClassifyComplexity_AlgorithmAlwaysHigh(t *testing.T) {
	for _, n := range []int{0, 5, 25, 49} {
		q := words(n) + " Algorithm"
		if got := ClassifyComplexity(q); got != ComplexityHigh {
			t.Errorf("%d words + algorithm: got %s, want high", n, got)
		}
	}
}

func TestClassifier_CustomTerms(t *testing.T) {
	c := NewClassifier(Terms{
		Complexity: []string{"explain"},
		Code:       []string{"golang"},
	})

	if got := c.Classify("please explain"); got != ComplexityMedium {
		t.Errorf("expected medium, got %s", got)
	}
	if got := c.Classify("write algorithm"); got != ComplexityLow {
		t.Errorf("default terms should not apply, got %s", got)
	}
}

func TestClassifier_EmptyTerms(t *testing.T) {
	c := NewClassifier(Terms{})
	if got := c.Classify("detailed algorithm code"); got != ComplexityLow {
		t.Errorf("expected low with no terms, got %s", got)
	}
	if got := c.Classify(words(51)); got != ComplexityHigh {
		t.Errorf("word count should still apply, got %s", got)
	}
}

func TestWordCount(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"one", 1},
		{"  two   words ", 2},
		{"tab\tand\nnewline", 3},
	}
	for _, tt := range tests {
		if got := wordCount(tt.in); got != tt.want {
			t.Errorf("wordCount(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
