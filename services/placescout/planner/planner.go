package planner

import "fmt"

type Query struct {
	Category string
	Locality string
}

// Text is what gets typed into the search box.
func (q Query) Text() string {
	return fmt.Sprintf("%s %s", q.Category, q.Locality)
}

// Plan pairs every category with every locality, categories vary slowest.
// the order only depends on the order of the inputs so a resumed run can
// skip a prefix it already completed.
func Plan(categories, localities []string) []Query {
	queries := make([]Query, 0, len(categories)*len(localities))
	for _, category := range categories {
		for _, locality := range localities {
			queries = append(queries, Query{
				Category: category,
				Locality: locality,
			})
		}
	}
	return queries
}

// Skip drops the first n queries.
func Skip(queries []Query, n int) []Query {
	if n <= 0 {
		return queries
	}
	if n >= len(queries) {
		return nil
	}
	return queries[n:]
}
