package conflict

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ---------------------------------------------------------------------------
// Rule matching
// ---------------------------------------------------------------------------

// ConditionTarget selects what a condition inspects
type ConditionTarget string

const (
	TargetField         ConditionTarget = "field"
	TargetLocalValue    ConditionTarget = "local_value"
	TargetPlatformValue ConditionTarget = "platform_value"
)

// ConditionOp is a simple comparison operator
type ConditionOp string

const (
	OpEquals    ConditionOp = "equals"
	OpNotEquals ConditionOp = "not_equals"
	OpExists    ConditionOp = "exists"
	OpMissing   ConditionOp = "missing"
)

// Condition is one simple comparison over the conflict's field name or one
// of its values. All of a rule's conditions must hold for the rule to match.
type Condition struct {
	Target ConditionTarget `json:"target"`
	Op     ConditionOp     `json:"op"`
	Value  any             `json:"value,omitempty"`
}

// Rule binds a strategy to a field pattern. Field is "*" or an exact field
// name; among matching rules the highest priority wins.
type Rule struct {
	Name       string      `json:"name"`
	Field      string      `json:"field"`
	Strategy   Strategy    `json:"strategy"`
	Priority   int         `json:"priority"`
	Conditions []Condition `json:"conditions,omitempty"`
}

// ---------------------------------------------------------------------------
// Config
// ---------------------------------------------------------------------------

// Config is the resolver's rule table and tuning knobs. All heuristic
// constants are named and overridable here rather than buried as literals.
type Config struct {
	// AutoResolveThreshold is the minimum confidence for auto-application
	AutoResolveThreshold float64
	// TieBreakWindow is the modification-time distance below which
	// newest_wins is treated as ambiguous
	TieBreakWindow time.Duration
	// ConcatSeparator joins both sides in a string-concat merge
	ConcatSeparator string
	// DefaultStrategy applies when no rule matches
	DefaultStrategy Strategy
	// Rules is the ordered rule table
	Rules []Rule
	// MergeStrategies maps field name to the merge kind used by StrategyMerge
	MergeStrategies map[string]MergeKind
}

// DefaultConfig returns the resolver defaults with the standard e-commerce
// rule set installed.
func DefaultConfig() Config {
	return Config{
		AutoResolveThreshold: 0.8,
		TieBreakWindow:       60 * time.Second,
		ConcatSeparator:      "\n",
		DefaultStrategy:      StrategyNewestWins,
		Rules:                DefaultEcommerceRules(),
		MergeStrategies:      DefaultMergeStrategies(),
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.AutoResolveThreshold < 0 || c.AutoResolveThreshold > 1 {
		return errors.New("conflict: auto-resolve threshold must be in [0,1]")
	}
	if !c.DefaultStrategy.IsValid() {
		return errors.New("conflict: invalid default strategy")
	}
	for _, r := range c.Rules {
		if r.Field == "" {
			return errors.New("conflict: rule field must be set (use * for any)")
		}
		if !r.Strategy.IsValid() {
			return fmt.Errorf("conflict: rule %q has invalid strategy %q", r.Name, r.Strategy)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Resolver
// ---------------------------------------------------------------------------

// Resolver is the pure decision engine. Same conflict + same configuration
// always yields the same resolution; there are no side effects and no I/O.
type Resolver struct {
	mu  sync.RWMutex
	cfg Config
}

// NewResolver creates a resolver with the given configuration
func NewResolver(cfg Config) (*Resolver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.TieBreakWindow <= 0 {
		cfg.TieBreakWindow = 60 * time.Second
	}
	if cfg.MergeStrategies == nil {
		cfg.MergeStrategies = map[string]MergeKind{}
	}
	return &Resolver{cfg: cfg}, nil
}

// Config returns a copy of the current configuration
func (r *Resolver) Config() Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg
}

// SetConfig replaces the configuration at runtime
func (r *Resolver) SetConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.TieBreakWindow <= 0 {
		cfg.TieBreakWindow = 60 * time.Second
	}
	if cfg.MergeStrategies == nil {
		cfg.MergeStrategies = map[string]MergeKind{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg = cfg
	return nil
}

// Resolve decides one conflict
func (r *Resolver) Resolve(c Conflict) Resolution {
	r.mu.RLock()
	cfg := r.cfg
	r.mu.RUnlock()

	strategy := cfg.DefaultStrategy
	ruleName := ""
	if rule := matchRule(cfg.Rules, c); rule != nil {
		strategy = rule.Strategy
		ruleName = rule.Name
	}
	res := applyStrategy(cfg, c, strategy)
	if ruleName != "" {
		res.Reason = fmt.Sprintf("rule %q: %s", ruleName, res.Reason)
	}
	return res
}

// ResolvedConflict pairs a conflict with its resolution
type ResolvedConflict struct {
	Conflict   Conflict
	Resolution Resolution
}

// BatchResolution partitions a batch by reviewability. Resolved holds every
// decision in input order; AutoResolved and ManualReview are the partition by
// confidence >= AutoResolveThreshold AND no manual-review flag.
type BatchResolution struct {
	Resolved     []ResolvedConflict
	AutoResolved []ResolvedConflict
	ManualReview []ResolvedConflict
}

// ResolveAll decides a batch of conflicts
func (r *Resolver) ResolveAll(conflicts []Conflict) BatchResolution {
	r.mu.RLock()
	threshold := r.cfg.AutoResolveThreshold
	r.mu.RUnlock()

	batch := BatchResolution{
		Resolved:     make([]ResolvedConflict, 0, len(conflicts)),
		AutoResolved: make([]ResolvedConflict, 0, len(conflicts)),
		ManualReview: make([]ResolvedConflict, 0),
	}
	for _, c := range conflicts {
		rc := ResolvedConflict{Conflict: c, Resolution: r.Resolve(c)}
		batch.Resolved = append(batch.Resolved, rc)
		if rc.Resolution.RequiresManualReview || rc.Resolution.Confidence < threshold {
			batch.ManualReview = append(batch.ManualReview, rc)
		} else {
			batch.AutoResolved = append(batch.AutoResolved, rc)
		}
	}
	return batch
}

// ---------------------------------------------------------------------------
// Strategy application
// ---------------------------------------------------------------------------

// matchRule returns the matching rule with the highest priority, or nil.
// Earlier rules win priority ties, keeping selection deterministic.
func matchRule(rules []Rule, c Conflict) *Rule {
	var best *Rule
	for i := range rules {
		rule := &rules[i]
		if rule.Field != "*" && rule.Field != c.Field {
			continue
		}
		if !conditionsHold(rule.Conditions, c) {
			continue
		}
		if best == nil || rule.Priority > best.Priority {
			best = rule
		}
	}
	return best
}

func conditionsHold(conditions []Condition, c Conflict) bool {
	for _, cond := range conditions {
		if !conditionHolds(cond, c) {
			return false
		}
	}
	return true
}

func conditionHolds(cond Condition, c Conflict) bool {
	var subject any
	switch cond.Target {
	case TargetField:
		subject = c.Field
	case TargetLocalValue:
		subject = c.LocalValue
	case TargetPlatformValue:
		subject = c.PlatformValue
	default:
		return false
	}

	switch cond.Op {
	case OpEquals:
		return valueEqual(subject, cond.Value)
	case OpNotEquals:
		return !valueEqual(subject, cond.Value)
	case OpExists:
		return !valueEmpty(subject)
	case OpMissing:
		return valueEmpty(subject)
	default:
		return false
	}
}

func applyStrategy(cfg Config, c Conflict, strategy Strategy) Resolution {
	switch strategy {
	case StrategyPlatformWins:
		return Resolution{
			ResolvedValue: c.PlatformValue,
			Strategy:      StrategyPlatformWins,
			Confidence:    1.0,
			Reason:        "platform value wins by rule",
		}

	case StrategyLocalWins:
		return Resolution{
			ResolvedValue: c.LocalValue,
			Strategy:      StrategyLocalWins,
			Confidence:    1.0,
			Reason:        "local value wins by rule",
		}

	case StrategyNewestWins:
		return resolveNewestWins(cfg, c)

	case StrategyMerge:
		return resolveMerge(cfg, c)

	case StrategyManualReview:
		return Resolution{
			ResolvedValue:        c.LocalValue,
			Strategy:             StrategyManualReview,
			Confidence:           0,
			RequiresManualReview: true,
			Reason:               "manual review requested",
		}

	default:
		// Unknown strategy behaves like manual review; never guess.
		return Resolution{
			ResolvedValue:        c.LocalValue,
			Strategy:             StrategyManualReview,
			Confidence:           0,
			RequiresManualReview: true,
			Reason:               fmt.Sprintf("unknown strategy %q", strategy),
		}
	}
}

// resolveNewestWins compares modification timestamps. Within the tie-break
// window the winner is ambiguous: the platform value is returned but flagged
// for manual review at half confidence.
func resolveNewestWins(cfg Config, c Conflict) Resolution {
	diff := c.PlatformModified.Sub(c.LocalModified)
	if diff < 0 {
		diff = -diff
	}
	if diff < cfg.TieBreakWindow {
		return Resolution{
			ResolvedValue:        c.PlatformValue,
			Strategy:             StrategyNewestWins,
			Confidence:           0.5,
			RequiresManualReview: true,
			Reason:               fmt.Sprintf("modification times within %s tie-break window", cfg.TieBreakWindow),
		}
	}
	if c.PlatformModified.After(c.LocalModified) {
		return Resolution{
			ResolvedValue: c.PlatformValue,
			Strategy:      StrategyNewestWins,
			Confidence:    0.9,
			Reason:        "platform value is newer",
		}
	}
	return Resolution{
		ResolvedValue: c.LocalValue,
		Strategy:      StrategyNewestWins,
		Confidence:    0.9,
		Reason:        "local value is newer",
	}
}

func resolveMerge(cfg Config, c Conflict) Resolution {
	kind, ok := cfg.MergeStrategies[c.Field]
	if !ok {
		return mergeFailure(c, fmt.Sprintf("no merge strategy configured for field %q", c.Field))
	}
	merged, err := applyMerge(kind, c.LocalValue, c.PlatformValue, cfg.ConcatSeparator)
	if err != nil {
		return mergeFailure(c, err.Error())
	}
	return Resolution{
		ResolvedValue: merged,
		Strategy:      StrategyMerge,
		Confidence:    0.8,
		Reason:        fmt.Sprintf("merged with %s", kind),
	}
}

// mergeFailure falls back to the local value with zero confidence
func mergeFailure(c Conflict, reason string) Resolution {
	return Resolution{
		ResolvedValue:        c.LocalValue,
		Strategy:             StrategyMerge,
		Confidence:           0,
		RequiresManualReview: true,
		Reason:               "merge failed: " + reason,
	}
}
