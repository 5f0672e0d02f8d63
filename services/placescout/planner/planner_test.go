package planner

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPlan(t *testing.T) {
	categories := []string{"pizzeria", "bistrot", "sushi"}
	localities := []string{"Lyon", "Paris"}

	queries := Plan(categories, localities)
	require.Len(t, queries, len(categories)*len(localities))
	require.Equal(t, []Query{
		{Category: "pizzeria", Locality: "Lyon"},
		{Category: "pizzeria", Locality: "Paris"},
		{Category: "bistrot", Locality: "Lyon"},
		{Category: "bistrot", Locality: "Paris"},
		{Category: "sushi", Locality: "Lyon"},
		{Category: "sushi", Locality: "Paris"},
	}, queries)

	for i, category := range categories {
		for j, locality := range localities {
			q := queries[i*len(localities)+j]
			require.Equal(t, category, q.Category)
			require.Equal(t, locality, q.Locality)
		}
	}

	require.Equal(t, "pizzeria Lyon", queries[0].Text())
	require.Empty(t, Plan(nil, localities))
	require.Empty(t, Plan(categories, nil))
}

func TestSkip(t *testing.T) {
	queries := Plan([]string{"pizzeria", "burger"}, []string{"Lyon", "Nice"})

	require.Equal(t, queries, Skip(queries, 0))
	require.Equal(t, queries, Skip(queries, -2))
	require.Equal(t, []Query{
		{Category: "burger", Locality: "Lyon"},
		{Category: "burger", Locality: "Nice"},
	}, Skip(queries, 2))
	require.Empty(t, Skip(queries, 4))
	require.Empty(t, Skip(queries, 10))
}
