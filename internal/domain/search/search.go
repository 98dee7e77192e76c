// Package search defines the cross-entity search result type.
package search

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tradeloom/tradeloom/internal/domain"
)

// MaxPerType caps the number of results returned for each entity type.
const MaxPerType = 5

// MinQueryLen is the shortest accepted query after trimming.
const MinQueryLen = 2

// Type discriminates search results.
type Type string

const (
	TypeCustomer Type = "customer"
	TypeSupplier Type = "supplier"
	TypeOrder    Type = "order"
)

// Types is the fixed order in which result groups are emitted.
var Types = []Type{TypeCustomer, TypeSupplier, TypeOrder}

// Result is one search hit. Type selects which entity the hit refers to;
// Title and Subtitle are prepared for display so callers never need to
// inspect the underlying entity.
type Result struct {
	Type     Type   `json:"type"`
	ID       string `json:"id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	URL      string `json:"url"`
}

// Response is the payload returned by the search endpoint.
type Response struct {
	Query   string   `json:"query"`
	Results []Result `json:"results"`
}

// Query is a normalized search request.
type Query struct {
	Text  string
	Limit int
}

// NewQuery trims text and validates it. limit <= 0 or above MaxPerType
// falls back to MaxPerType.
func NewQuery(text string, limit int) (Query, error) {
	text = strings.TrimSpace(text)
	if len([]rune(text)) < MinQueryLen {
		return Query{}, fmt.Errorf("%w: %w", domain.ErrValidation,
			fmt.Errorf("query must be at least %d characters", MinQueryLen))
	}
	if len(text) > 200 {
		return Query{}, fmt.Errorf("%w: %w", domain.ErrValidation, errors.New("query is too long"))
	}
	if limit <= 0 || limit > MaxPerType {
		limit = MaxPerType
	}
	return Query{Text: text, Limit: limit}, nil
}

// Pattern returns an ILIKE pattern matching Text anywhere, with LIKE
// metacharacters escaped.
func (q Query) Pattern() string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q.Text) + "%"
}

// Merge concatenates groups in Types order, truncating each to limit.
func Merge(groups map[Type][]Result, limit int) []Result {
	out := make([]Result, 0, limit*len(Types))
	for _, t := range Types {
		g := groups[t]
		if len(g) > limit {
			g = g[:limit]
		}
		out = append(out, g...)
	}
	return out
}
