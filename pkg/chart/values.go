package chart

import (
	"fmt"
	"strings"

	"github.com/chartgen/chart-gen-scripts/pkg/options"
	"golang.org/x/exp/slices"
)

// conditionEscapePrefix marks a dependency condition that must not be nested under
// the chart's root values key
const conditionEscapePrefix = "@."

// DependencyCondition returns the effective condition path for a dependency.
// A configured condition is nested under the root values alias unless it carries the
// `@.` prefix, in which case the prefix is stripped and the path is used verbatim.
// When no condition is configured, <rootAlias>.<name>.enabled is derived.
func DependencyCondition(rootAlias string, dep options.DependencyOptions) string {
	name := dep.Name
	if dep.Alias != "" {
		name = dep.Alias
	}
	switch {
	case dep.Condition == "":
		return fmt.Sprintf("%s.%s.enabled", rootAlias, name)
	case strings.HasPrefix(dep.Condition, conditionEscapePrefix):
		return strings.TrimPrefix(dep.Condition, conditionEscapePrefix)
	default:
		return fmt.Sprintf("%s.%s", rootAlias, dep.Condition)
	}
}

// BuildValues produces the values.yaml tree for the generated chart: one enabled flag
// per dependency condition plus every configured override, applied in that order so
// overrides win. Key order inside the tree is handled by the YAML marshaller.
func BuildValues(opts options.ChartOptions) (map[string]interface{}, error) {
	values := map[string]interface{}{}

	for _, key := range sortedKeys(opts.Dependencies) {
		dep := opts.Dependencies[key]
		condition := DependencyCondition(opts.ValuesRootAlias, dep)
		if err := setNestedValue(values, condition, dep.IsEnabled()); err != nil {
			return nil, fmt.Errorf("dependency %s: %s", key, err)
		}
	}

	for _, path := range sortedKeys(opts.Overrides) {
		if err := setNestedValue(values, path, opts.Overrides[path]); err != nil {
			return nil, fmt.Errorf("override %s: %s", path, err)
		}
	}

	return values, nil
}

// setNestedValue sets a dotted path inside the values tree, creating intermediate
// maps along the way. A path segment colliding with an existing scalar is an error.
func setNestedValue(values map[string]interface{}, path string, value interface{}) error {
	segments := strings.Split(path, ".")
	current := values
	for _, segment := range segments[:len(segments)-1] {
		next, ok := current[segment]
		if !ok {
			child := map[string]interface{}{}
			current[segment] = child
			current = child
			continue
		}
		child, ok := next.(map[string]interface{})
		if !ok {
			return fmt.Errorf("value path %s collides with an existing non-map value at %s", path, segment)
		}
		current = child
	}
	current[segments[len(segments)-1]] = value
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}
