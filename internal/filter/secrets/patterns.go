package secrets

import "regexp"

// Pattern is a named credential shape.
type Pattern struct {
	Name  string
	Regex *regexp.Regexp
}

// DefaultPatterns returns the credential shapes that must never reach the
// decision log. The list favors precise token formats over generic
// "password=" heuristics.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{"NowGo API Key", regexp.MustCompile(`nowgo-[a-z]+-[a-z0-9]{32}`)},
		{"OpenAI API Key", regexp.MustCompile(`sk-(?:proj-)?[A-Za-z0-9_\-]{32,}`)},
		{"Anthropic API Key", regexp.MustCompile(`sk-ant-[A-Za-z0-9_\-]{32,}`)},
		{"AWS Access Key", regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
		{"GitHub Token", regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{36,}`)},
		{"Stripe Secret Key", regexp.MustCompile(`sk_live_[A-Za-z0-9]{24,}`)},
		{"Private Key", regexp.MustCompile(`-----BEGIN (?:RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----`)},
		{"Connection String", regexp.MustCompile(`(?:postgres|postgresql|mysql|mongodb|redis)://[^\s:@/]+:[^\s@/]+@[^\s]+`)},
		{"JWT Token", regexp.MustCompile(`eyJ[A-Za-z0-9\-_]+\.eyJ[A-Za-z0-9\-_]+\.[A-Za-z0-9\-_]+`)},
	}
}
