package chart

import (
	"testing"

	"github.com/chartgen/chart-gen-scripts/pkg/options"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDependencyCondition(t *testing.T) {
	tests := []struct {
		name     string
		dep      options.DependencyOptions
		expected string
	}{
		{
			name:     "#1 - derived from dependency name",
			dep:      options.DependencyOptions{Name: "postgresql"},
			expected: "app.postgresql.enabled",
		},
		{
			name:     "#2 - alias wins over name",
			dep:      options.DependencyOptions{Name: "postgresql", Alias: "db"},
			expected: "app.db.enabled",
		},
		{
			name:     "#3 - configured condition is nested under the root alias",
			dep:      options.DependencyOptions{Name: "postgresql", Condition: "postgresql.enabled"},
			expected: "app.postgresql.enabled",
		},
		{
			name:     "#4 - escaped condition is used verbatim",
			dep:      options.DependencyOptions{Name: "postgresql", Condition: "@.global.postgresql.enabled"},
			expected: "global.postgresql.enabled",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DependencyCondition("app", tt.dep))
		})
	}
}

func TestBuildValues(t *testing.T) {
	disabled := false
	opts := options.ChartOptions{
		Name:            "demo",
		Version:         "0.1.0",
		ValuesRootAlias: "app",
		Dependencies: map[string]options.DependencyOptions{
			"postgresql": {Name: "postgresql"},
			"redis":      {Name: "redis", Enabled: &disabled, Condition: "@.redis.enabled"},
		},
		Overrides: map[string]interface{}{
			"app.replicas":   3,
			"app.database.x": "y",
		},
	}

	values, err := BuildValues(opts)
	require.NoError(t, err)

	expected := map[string]interface{}{
		"app": map[string]interface{}{
			"postgresql": map[string]interface{}{"enabled": true},
			"replicas":   3,
			"database":   map[string]interface{}{"x": "y"},
		},
		"redis": map[string]interface{}{"enabled": false},
	}
	if diff := cmp.Diff(expected, values); diff != "" {
		t.Errorf("BuildValues() mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildValuesOverrideWinsOverCondition(t *testing.T) {
	opts := options.ChartOptions{
		ValuesRootAlias: "app",
		Dependencies: map[string]options.DependencyOptions{
			"postgresql": {Name: "postgresql"},
		},
		Overrides: map[string]interface{}{
			"app.postgresql.enabled": false,
		},
	}
	values, err := BuildValues(opts)
	require.NoError(t, err)
	app := values["app"].(map[string]interface{})
	postgresql := app["postgresql"].(map[string]interface{})
	assert.Equal(t, false, postgresql["enabled"])
}

func TestBuildValuesPathCollision(t *testing.T) {
	opts := options.ChartOptions{
		ValuesRootAlias: "app",
		Overrides: map[string]interface{}{
			"app.replicas":     3,
			"app.replicas.max": 5,
		},
	}
	_, err := BuildValues(opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collides")
}
