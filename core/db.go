package core

import (
	"context"
	"strings"
)

// TxRunner runs fn inside a single database transaction.
// Repositories called with the ctx passed to fn take part in that transaction.
// fn's error rolls the transaction back and is returned as is.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// ParseOrdering parses a comma separated list of fields (eg: "title,-price").
// A leading "-" means descending. Fields not in `allowed` are dropped;
// `allowed` maps public field names to column names.
func ParseOrdering(val string, allowed map[string]string) []DBOrdering {
	if val == "" {
		return nil
	}
	var orderings []DBOrdering
	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		col, ok := allowed[field]
		if !ok {
			continue
		}
		orderings = append(orderings, DBOrdering{Field: col, Ascending: !descending})
	}
	return orderings
}

// Pagination limits query results. A zero Limit means no limit.
type Pagination struct {
	Limit  int
	Offset int
}

// Apply returns the page of n items as [start:end] bounds.
func (p Pagination) Apply(n int) (start, end int) {
	start = p.Offset
	if start < 0 {
		start = 0
	}
	if start > n {
		start = n
	}
	end = n
	if p.Limit > 0 && start+p.Limit < n {
		end = start + p.Limit
	}
	return start, end
}
