package planner

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/zentab/tabagent/api/schemas"
)

// factories maps provider names to planner constructors. Model-backed
// providers live behind external planning backends speaking the same wire
// contract, so only the rule-based planner is registered in-process.
var factories = map[string]func(*zap.Logger) schemas.Planner{
	"rule_based": func(l *zap.Logger) schemas.Planner { return NewRuleBased(l) },
}

// New constructs the planner registered under name.
func New(name string, logger *zap.Logger) (schemas.Planner, error) {
	factory, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown planner provider %q", name)
	}
	return factory(logger), nil
}

// Providers lists the registered provider names, sorted.
func Providers() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
