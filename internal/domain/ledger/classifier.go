package ledger

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
)

// Direction is the natural flow of a line relative to the ledger's warehouse.
type Direction int

const (
	Inbound  Direction = 1
	Outbound Direction = -1
)

// String returns "in" or "out".
func (d Direction) String() string {
	if d == Outbound {
		return "out"
	}
	return "in"
}

// ParseDirection maps "in"/"out" to a Direction; anything else is 0 (any).
func ParseDirection(s string) Direction {
	switch s {
	case "in", "inbound", "+":
		return Inbound
	case "out", "outbound", "-":
		return Outbound
	}
	return 0
}

// Input is everything classification may look at for one line.
// Quantities are deliberately absent: only the direction derived from them is.
type Input struct {
	Type      entity.MovementType
	Direction Direction
	Reason    string
	Notes     string
	SalesType string
	Scope     string
}

// Match is the outcome of classification.
type Match struct {
	Bucket Bucket `json:"bucket"`
	// Rule names the rule that fired; empty when the line fell through to other.
	Rule string `json:"rule,omitempty"`
}

// RuleSpec is the configurable form of a rule. Every non-empty constraint
// must hold for the rule to fire.
type RuleSpec struct {
	Name   string `mapstructure:"name" json:"name"`
	Bucket Bucket `mapstructure:"bucket" json:"bucket"`

	// Keywords match when any of them occurs in the normalized reason+notes.
	Keywords []string `mapstructure:"keywords" json:"keywords,omitempty"`

	// Types restricts the rule to these movement types.
	Types []entity.MovementType `mapstructure:"types" json:"types,omitempty"`

	// Direction restricts the rule to "in" or "out" lines.
	Direction string `mapstructure:"direction" json:"direction,omitempty"`

	// SalesTypes match when any of them occurs in the normalized sales type.
	SalesTypes []string `mapstructure:"salesTypes" json:"salesTypes,omitempty"`

	// When is an optional CEL boolean expression over
	// type, direction, sales_type, scope and text.
	When string `mapstructure:"when" json:"when,omitempty"`
}

type rule struct {
	name       string
	bucket     Bucket
	keywords   []string
	types      []entity.MovementType
	direction  Direction
	salesTypes []string
	when       cel.Program
}

var (
	celOnce sync.Once
	celEnv  *cel.Env
	celErr  error
)

func ruleEnv() (*cel.Env, error) {
	celOnce.Do(func() {
		celEnv, celErr = cel.NewEnv(
			cel.Variable("type", cel.StringType),
			cel.Variable("direction", cel.IntType),
			cel.Variable("sales_type", cel.StringType),
			cel.Variable("scope", cel.StringType),
			cel.Variable("text", cel.StringType),
		)
	})
	return celEnv, celErr
}

func compileRule(spec RuleSpec) (rule, error) {
	if spec.Name == "" {
		return rule{}, apperror.NewConfiguration("rule name is required")
	}
	if !spec.Bucket.Valid() {
		return rule{}, apperror.NewConfiguration(fmt.Sprintf("rule %q: unknown bucket %q", spec.Name, spec.Bucket))
	}
	for _, t := range spec.Types {
		if !t.Valid() {
			return rule{}, apperror.NewConfiguration(fmt.Sprintf("rule %q: unknown movement type %q", spec.Name, t))
		}
	}
	if spec.Direction != "" && ParseDirection(spec.Direction) == 0 {
		return rule{}, apperror.NewConfiguration(fmt.Sprintf("rule %q: direction must be in or out", spec.Name))
	}

	r := rule{
		name:      spec.Name,
		bucket:    spec.Bucket,
		types:     slices.Clone(spec.Types),
		direction: ParseDirection(spec.Direction),
	}
	for _, k := range spec.Keywords {
		if n := Normalize(k); n != "" {
			r.keywords = append(r.keywords, n)
		}
	}
	for _, k := range spec.SalesTypes {
		if n := Normalize(k); n != "" {
			r.salesTypes = append(r.salesTypes, n)
		}
	}

	if spec.When != "" {
		env, err := ruleEnv()
		if err != nil {
			return rule{}, apperror.NewConfiguration("rule expression environment").WithCause(err)
		}
		ast, iss := env.Compile(spec.When)
		if iss.Err() != nil {
			return rule{}, apperror.NewConfiguration(fmt.Sprintf("rule %q: invalid expression", spec.Name)).WithCause(iss.Err())
		}
		prg, err := env.Program(ast)
		if err != nil {
			return rule{}, apperror.NewConfiguration(fmt.Sprintf("rule %q: invalid expression", spec.Name)).WithCause(err)
		}
		r.when = prg
	}
	return r, nil
}

// matches never consults a quantity; text and salesType are already normalized.
func (r rule) matches(in Input, text, salesType string) bool {
	if len(r.types) > 0 && !slices.Contains(r.types, in.Type) {
		return false
	}
	if r.direction != 0 && r.direction != in.Direction {
		return false
	}
	if len(r.keywords) > 0 && !containsAny(text, r.keywords) {
		return false
	}
	if len(r.salesTypes) > 0 && !containsAny(salesType, r.salesTypes) {
		return false
	}
	if r.when != nil {
		out, _, err := r.when.Eval(map[string]any{
			"type":       string(in.Type),
			"direction":  int64(in.Direction),
			"sales_type": salesType,
			"scope":      in.Scope,
			"text":       text,
		})
		if err != nil {
			return false
		}
		ok, isBool := out.Value().(bool)
		return isBool && ok
	}
	return true
}

func containsAny(s string, subs []string) bool {
	if s == "" {
		return false
	}
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
