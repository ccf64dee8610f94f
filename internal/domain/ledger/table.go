package ledger

import (
	"fmt"
	"slices"

	"stockledger/internal/core/apperror"
)

// ContextSpec configures one warehouse ledger context: which scope it reads,
// which bucket columns it reports and the ordered rules that classify lines.
type ContextSpec struct {
	Name  string `mapstructure:"name" json:"name"`
	Title string `mapstructure:"title" json:"title,omitempty"`

	// Scope is the warehouse scope of the ledger; defaults to Name.
	Scope string `mapstructure:"scope" json:"scope,omitempty"`

	// Split reports bulk and packed sub-ledgers separately.
	Split bool `mapstructure:"split" json:"split"`

	// BulkUnits are product units whose unsplit lines go to the bulk sub-ledger.
	BulkUnits []string `mapstructure:"bulkUnits" json:"bulkUnits,omitempty"`

	// Columns fixes the report column order. Empty derives it from Rules.
	Columns []Bucket `mapstructure:"columns" json:"columns,omitempty"`

	Rules []RuleSpec `mapstructure:"rules" json:"rules"`
}

// RuleTable is a compiled context. It is immutable and safe for concurrent use.
type RuleTable struct {
	name      string
	title     string
	scope     string
	split     bool
	bulkUnits []string
	columns   []Bucket
	rules     []rule
}

// NewRuleTable compiles spec. Configuration problems surface here so that
// classification itself can never fail.
func NewRuleTable(spec ContextSpec) (*RuleTable, error) {
	if spec.Name == "" {
		return nil, apperror.NewConfiguration("context name is required")
	}
	t := &RuleTable{
		name:  spec.Name,
		title: spec.Title,
		scope: spec.Scope,
		split: spec.Split,
	}
	if t.scope == "" {
		t.scope = spec.Name
	}
	if t.title == "" {
		t.title = spec.Name
	}
	for _, u := range spec.BulkUnits {
		if n := Normalize(u); n != "" {
			t.bulkUnits = append(t.bulkUnits, n)
		}
	}

	seen := make(map[string]bool, len(spec.Rules))
	for _, rs := range spec.Rules {
		if seen[rs.Name] {
			return nil, apperror.NewConfiguration(fmt.Sprintf("context %q: duplicate rule %q", spec.Name, rs.Name))
		}
		seen[rs.Name] = true
		r, err := compileRule(rs)
		if err != nil {
			return nil, fmt.Errorf("context %q: %w", spec.Name, err)
		}
		t.rules = append(t.rules, r)
	}

	if len(spec.Columns) == 0 {
		for _, r := range t.rules {
			if !slices.Contains(t.columns, r.bucket) {
				t.columns = append(t.columns, r.bucket)
			}
		}
	} else {
		for _, b := range spec.Columns {
			if !b.Valid() {
				return nil, apperror.NewConfiguration(fmt.Sprintf("context %q: unknown column %q", spec.Name, b))
			}
			if slices.Contains(t.columns, b) {
				return nil, apperror.NewConfiguration(fmt.Sprintf("context %q: duplicate column %q", spec.Name, b))
			}
			t.columns = append(t.columns, b)
		}
		for _, r := range t.rules {
			if !slices.Contains(t.columns, r.bucket) {
				return nil, apperror.NewConfiguration(
					fmt.Sprintf("context %q: rule %q yields %q which is not a column", spec.Name, r.name, r.bucket))
			}
		}
	}
	if !slices.Contains(t.columns, BucketOther) {
		t.columns = append(t.columns, BucketOther)
	}
	return t, nil
}

// MustRuleTable is NewRuleTable for built-in tables and tests.
func MustRuleTable(spec ContextSpec) *RuleTable {
	t, err := NewRuleTable(spec)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *RuleTable) Name() string  { return t.name }
func (t *RuleTable) Title() string { return t.title }
func (t *RuleTable) Scope() string { return t.scope }
func (t *RuleTable) Split() bool   { return t.split }

// Columns returns the bucket columns in report order; other is always last
// unless configured explicitly.
func (t *RuleTable) Columns() []Bucket { return slices.Clone(t.columns) }

// RuleNames returns rule names in evaluation order.
func (t *RuleTable) RuleNames() []string {
	names := make([]string, len(t.rules))
	for i, r := range t.rules {
		names[i] = r.name
	}
	return names
}

// IsBulkUnit reports whether unsplit lines of a product with this unit
// belong to the bulk sub-ledger.
func (t *RuleTable) IsBulkUnit(unit string) bool {
	n := Normalize(unit)
	return n != "" && slices.Contains(t.bulkUnits, n)
}

// Match classifies one line and names the rule that fired.
// The first matching rule wins; no match yields BucketOther.
func (t *RuleTable) Match(in Input) Match {
	text := Normalize(in.Reason + " " + in.Notes)
	salesType := Normalize(in.SalesType)
	for _, r := range t.rules {
		if r.matches(in, text, salesType) {
			return Match{Bucket: r.bucket, Rule: r.name}
		}
	}
	return Match{Bucket: BucketOther}
}

// Classify returns the bucket of one line. It is pure: identical inputs
// always yield the identical bucket.
func (t *RuleTable) Classify(in Input) Bucket {
	return t.Match(in).Bucket
}

// Registry holds the rule tables of every configured context.
type Registry struct {
	tables map[string]*RuleTable
	order  []string
}

// NewRegistry compiles specs. Later specs with the same name replace earlier
// ones. Each scope must be read by exactly one context: posting and replay
// both go through the table that owns the scope.
func NewRegistry(specs ...ContextSpec) (*Registry, error) {
	c := &Registry{tables: make(map[string]*RuleTable, len(specs))}
	for _, s := range specs {
		t, err := NewRuleTable(s)
		if err != nil {
			return nil, err
		}
		if _, exists := c.tables[t.name]; !exists {
			c.order = append(c.order, t.name)
		}
		c.tables[t.name] = t
	}
	owners := make(map[string]string, len(c.order))
	for _, n := range c.order {
		scope := c.tables[n].scope
		if owner, taken := owners[scope]; taken {
			return nil, apperror.NewConfiguration(
				fmt.Sprintf("contexts %q and %q both read scope %q", owner, n, scope))
		}
		owners[scope] = n
	}
	return c, nil
}

// Get returns the table of a context.
func (c *Registry) Get(name string) (*RuleTable, bool) {
	t, ok := c.tables[name]
	return t, ok
}

// Tables returns every table in configuration order.
func (c *Registry) Tables() []*RuleTable {
	out := make([]*RuleTable, 0, len(c.order))
	for _, n := range c.order {
		out = append(out, c.tables[n])
	}
	return out
}

// ForScope returns the table that owns scope.
func (c *Registry) ForScope(scope string) (*RuleTable, bool) {
	for _, n := range c.order {
		if t := c.tables[n]; t.scope == scope {
			return t, true
		}
	}
	return nil, false
}
