package persistence

import (
	"strings"

	"gorm.io/gorm/clause"
)

// invoiceSortColumns are the invoice columns a list may be ordered by.
var invoiceSortColumns = map[string]bool{
	"created_at":  true,
	"updated_at":  true,
	"number":      true,
	"issue_date":  true,
	"due_date":    true,
	"grand_total": true,
	"status":      true,
	"client_name": true,
}

// orderBy builds the ORDER BY column for a list query. Unknown columns fall
// back to fallback and anything but "asc" sorts descending, so user input
// never reaches the SQL text. id is appended by callers as a tiebreaker.
func orderBy(allowed map[string]bool, column, direction, fallback string) clause.OrderByColumn {
	column = strings.TrimSpace(column)
	if !allowed[column] {
		column = fallback
	}
	return clause.OrderByColumn{
		Column: clause.Column{Name: column},
		Desc:   !strings.EqualFold(strings.TrimSpace(direction), "asc"),
	}
}
