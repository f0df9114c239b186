package conflict

// DefaultEcommerceRules returns the standard rule set for marketplace sync.
// It is plain configuration, not engine behavior: operators can replace any
// of it at runtime through SetConfig.
//
//   - price, inventory, status: the platform is the selling surface and wins
//   - images, tags, attributes: both sides contribute, so merge
//   - description: defer to a human whenever a local description exists
//   - everything else: newest modification wins (the default strategy)
func DefaultEcommerceRules() []Rule {
	return []Rule{
		{
			Name:     "platform-owns-price",
			Field:    "price",
			Strategy: StrategyPlatformWins,
			Priority: 100,
		},
		{
			Name:     "platform-owns-inventory",
			Field:    "inventory",
			Strategy: StrategyPlatformWins,
			Priority: 100,
		},
		{
			Name:     "platform-owns-status",
			Field:    "status",
			Strategy: StrategyPlatformWins,
			Priority: 100,
		},
		{
			Name:     "merge-images",
			Field:    "images",
			Strategy: StrategyMerge,
			Priority: 90,
		},
		{
			Name:     "merge-tags",
			Field:    "tags",
			Strategy: StrategyMerge,
			Priority: 90,
		},
		{
			Name:     "merge-attributes",
			Field:    "attributes",
			Strategy: StrategyMerge,
			Priority: 90,
		},
		{
			Name:     "review-description",
			Field:    "description",
			Strategy: StrategyManualReview,
			Priority: 90,
			Conditions: []Condition{
				{Target: TargetLocalValue, Op: OpExists},
			},
		},
	}
}

// DefaultMergeStrategies returns the per-field merge table the default rules
// rely on.
func DefaultMergeStrategies() map[string]MergeKind {
	return map[string]MergeKind{
		"images":     MergeArrayUnion,
		"tags":       MergeArrayUnion,
		"attributes": MergeObjectShallow,
	}
}
