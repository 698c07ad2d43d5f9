package inference

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Step labels written by the engine. Renderers match on these.
const (
	StepStart          = "start"
	StepError          = "error"
	StepCheckNode      = "check node"
	StepFoundLink      = "found link"
	StepFoundSymptom   = "found symptom"
	StepFoundTreatment = "found treatment"
	StepCandidates     = "candidate diseases"
	StepMatch          = "match"
	StepVerdict        = "subtype verdict"
	StepFoundDisease   = "found disease"
	StepPath           = "path"
	StepResult         = "result"
)

// PayloadKind says which field of a Payload is meaningful.
type PayloadKind int

const (
	PayloadText PayloadKind = iota
	PayloadList
	PayloadPairs
)

// Pair is one key/value line of a PayloadPairs payload.
type Pair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Payload is the detail attached to a step: free text, a list, or ordered pairs.
type Payload struct {
	Kind  PayloadKind `json:"kind"`
	Text  string      `json:"text,omitempty"`
	Items []string    `json:"items,omitempty"`
	Pairs []Pair      `json:"pairs,omitempty"`
}

func Text(format string, args ...any) Payload {
	return Payload{Kind: PayloadText, Text: fmt.Sprintf(format, args...)}
}

func List(items []string) Payload {
	cp := make([]string, len(items))
	copy(cp, items)
	return Payload{Kind: PayloadList, Items: cp}
}

// Pairs builds a pairs payload from alternating keys and values.
func Pairs(kv ...string) Payload {
	p := Payload{Kind: PayloadPairs}
	for i := 0; i+1 < len(kv); i += 2 {
		p.Pairs = append(p.Pairs, Pair{Key: kv[i], Value: kv[i+1]})
	}
	return p
}

// Get returns the value of key in a pairs payload.
func (p Payload) Get(key string) (string, bool) {
	for _, pair := range p.Pairs {
		if pair.Key == key {
			return pair.Value, true
		}
	}
	return "", false
}

func (p Payload) String() string {
	switch p.Kind {
	case PayloadList:
		return "[" + strings.Join(p.Items, ", ") + "]"
	case PayloadPairs:
		parts := make([]string, len(p.Pairs))
		for i, pair := range p.Pairs {
			parts[i] = pair.Key + ": " + pair.Value
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return p.Text
	}
}

// Step is one recorded reasoning step.
type Step struct {
	Label   string  `json:"label"`
	Payload Payload `json:"payload"`
}

// Trace is the ordered log of one query. Every query builds a fresh trace and
// hands it back to the caller, so traces of different queries never mix.
type Trace struct {
	QueryID  string        `json:"query_id"`
	Kind     QueryKind     `json:"kind"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
	Steps    []Step        `json:"steps"`
}

func newTrace(kind QueryKind) *Trace {
	return &Trace{
		QueryID: uuid.NewString(),
		Kind:    kind,
		Started: time.Now(),
		Steps:   make([]Step, 0, 8),
	}
}

func (t *Trace) add(label string, p Payload) {
	if t == nil {
		return
	}
	t.Steps = append(t.Steps, Step{Label: label, Payload: p})
}

// Len returns the number of steps.
func (t *Trace) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Steps)
}

// Find returns the steps carrying label, in order.
func (t *Trace) Find(label string) []Step {
	if t == nil {
		return nil
	}
	var out []Step
	for _, s := range t.Steps {
		if s.Label == label {
			out = append(out, s)
		}
	}
	return out
}

// Last returns the final step.
func (t *Trace) Last() (Step, bool) {
	if t.Len() == 0 {
		return Step{}, false
	}
	return t.Steps[len(t.Steps)-1], true
}

// Failed reports whether the query hit a not-found condition.
func (t *Trace) Failed() bool {
	return len(t.Find(StepError)) > 0
}

// Clone returns a deep copy.
func (t *Trace) Clone() *Trace {
	if t == nil {
		return nil
	}
	c := *t
	c.Steps = make([]Step, len(t.Steps))
	for i, s := range t.Steps {
		c.Steps[i] = Step{Label: s.Label, Payload: s.Payload.clone()}
	}
	return &c
}

func (p Payload) clone() Payload {
	c := p
	if p.Items != nil {
		c.Items = append([]string(nil), p.Items...)
	}
	if p.Pairs != nil {
		c.Pairs = append([]Pair(nil), p.Pairs...)
	}
	return c
}
