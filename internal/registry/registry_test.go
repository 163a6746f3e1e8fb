package registry

import (
	"context"
	"testing"

	"github.com/dshills/revgate/internal/review"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var noop = ReviewerFunc(func(context.Context, Request) (Outcome, error) { return Outcome{}, nil })

func mod(id string, cost Cost, domains ...review.Domain) Module {
	return Module{ID: id, Cost: cost, Domains: domains, Reviewer: noop}
}

func TestNew_SortsAndFreezes(t *testing.T) {
	domains := []review.Domain{"go"}
	r, err := New(mod("zeta", CostFast, "docs"), Module{ID: "alpha", Cost: CostDeep, Domains: domains, Reviewer: noop})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, r.IDs())
	assert.Equal(t, 2, r.Len())

	domains[0] = "mutated"
	m, ok := r.Lookup("alpha")
	require.True(t, ok)
	assert.Equal(t, []review.Domain{"go"}, m.Domains)

	m.Domains[0] = "mutated"
	again, _ := r.Lookup("alpha")
	assert.Equal(t, []review.Domain{"go"}, again.Domains)

	_, ok = r.Lookup("missing")
	assert.False(t, ok)
}

func TestNew_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		modules []Module
		want    string
	}{
		{"empty id", []Module{mod("", CostFast, "go")}, "id is required"},
		{"no domains", []Module{mod("a", CostFast)}, "covers no domains"},
		{"unclassified", []Module{mod("a", CostFast, review.DomainUnclassified)}, "invalid domain"},
		{"bad cost", []Module{mod("a", "cheap", "go")}, "invalid cost"},
		{"no reviewer", []Module{{ID: "a", Cost: CostFast, Domains: []review.Domain{"go"}}}, "reviewer is required"},
		{"duplicate", []Module{mod("a", CostFast, "go"), mod("a", CostDeep, "docs")}, "already registered"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.modules...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestAllows(t *testing.T) {
	assert.True(t, Allows(review.ModeQuick, CostFast))
	assert.False(t, Allows(review.ModeQuick, CostStandard))
	assert.True(t, Allows(review.ModeStandard, CostStandard))
	assert.False(t, Allows(review.ModeStandard, CostDeep))
	assert.True(t, Allows(review.ModeDeep, CostDeep))
	assert.Equal(t, []Cost{CostFast, CostStandard}, CostsFor(review.ModeStandard))
}

func TestNilRegistry(t *testing.T) {
	var r *Registry
	assert.Equal(t, 0, r.Len())
	assert.Nil(t, r.Modules())
	_, ok := r.Lookup("x")
	assert.False(t, ok)
}

func TestModule_Covers(t *testing.T) {
	m := mod("a", CostFast, "go", "auth-policy")
	assert.True(t, m.Covers("auth-policy"))
	assert.False(t, m.Covers("docs"))
}
