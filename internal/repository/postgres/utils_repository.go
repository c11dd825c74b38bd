package postgres

import (
	"strings"

	"github.com/lib/pq"
)

// SRID of every geometry column written by the store
const SRID4326 = 4326

// maxBindParams is the PostgreSQL limit on parameters in one statement.
const maxBindParams = 65535

// DefaultInsertBatch caps rows per INSERT statement.
const DefaultInsertBatch = 1000

func quoteIdent(name string) string {
	return pq.QuoteIdentifier(name)
}

func quoteIdents(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = pq.QuoteIdentifier(n)
	}
	return strings.Join(quoted, ", ")
}

// batchSize keeps a multi-row insert under the bind parameter limit.
func batchSize(columns, preferred int) int {
	if columns == 0 {
		return preferred
	}
	limit := maxBindParams / columns
	if preferred <= 0 || preferred > limit {
		return limit
	}
	return preferred
}
