package policy

import (
	"slices"
	"strings"

	"github.com/nao1215/sitecrawl/internal/model"
)

// Decision records which rule decided the admissibility of a URL.
type Decision string

const (
	// DecisionBlocked means the URL contained a block-list entry.
	DecisionBlocked Decision = "blocked"
	// DecisionAllowed means the URL started with an allow-list entry.
	DecisionAllowed Decision = "allowed"
	// DecisionOutOfScope means no allow-list entry matched.
	DecisionOutOfScope Decision = "out-of-scope"
)

// Admitted reports whether the decision lets the URL into the frontier.
func (d Decision) Admitted() bool {
	return d == DecisionAllowed
}

// Policy is an immutable allow/block rule set.
// It is safe for concurrent use.
type Policy struct {
	allow []string
	block []string
}

// New creates a Policy from copies of the given lists. Entries are matched
// literally, so an empty block entry blocks every URL and an empty allow
// entry admits every URL.
func New(allow, block []string) *Policy {
	return &Policy{
		allow: slices.Clone(allow),
		block: slices.Clone(block),
	}
}

// Allow returns a copy of the allow-list.
func (p *Policy) Allow() []string {
	return slices.Clone(p.allow)
}

// Block returns a copy of the block-list.
func (p *Policy) Block() []string {
	return slices.Clone(p.block)
}

// Decide returns the rule that applies to u.
func (p *Policy) Decide(u model.NormalizedURL) Decision {
	s := u.String()
	for _, b := range p.block {
		if strings.Contains(s, b) {
			return DecisionBlocked
		}
	}
	for _, a := range p.allow {
		if strings.HasPrefix(s, a) {
			return DecisionAllowed
		}
	}
	return DecisionOutOfScope
}

// Admit reports whether u may be enqueued.
func (p *Policy) Admit(u model.NormalizedURL) bool {
	return p.Decide(u).Admitted()
}

// IsAdmissible is the functional form of Policy.Admit.
func IsAdmissible(u model.NormalizedURL, allow, block []string) bool {
	return New(allow, block).Admit(u)
}
