package db

import (
	"fmt"
)

// Query builds the filtered COUNT and SELECT statements behind list
// endpoints. Clauses are ANDed; placeholders are numbered in the order
// arguments are added.
type Query struct {
	from    string
	cols    string
	where   string
	args    []interface{}
	idx     int
	orderBy string
}

// NewQuery starts a query over from (a table or join expression) selecting cols.
func NewQuery(from, cols string) *Query {
	return &Query{from: from, cols: cols, idx: 1}
}

// Idx returns the next available parameter index.
func (q *Query) Idx() int { return q.idx }

// Add appends a raw WHERE clause fragment (without leading "AND") whose
// placeholders start at Idx().
func (q *Query) Add(clause string, args ...interface{}) *Query {
	q.where += " AND " + clause
	q.args = append(q.args, args...)
	q.idx += len(args)
	return q
}

// Eq adds column = value.
func (q *Query) Eq(column string, value interface{}) *Query {
	return q.Add(fmt.Sprintf("%s = $%d", column, q.idx), value)
}

// Contains adds a case-insensitive substring match on column.
func (q *Query) Contains(column, value string) *Query {
	return q.Add(fmt.Sprintf("%s ILIKE $%d", column, q.idx), "%"+value+"%")
}

// OrderBy sets the ORDER BY clause (without the "ORDER BY" keyword).
func (q *Query) OrderBy(orderBy string) *Query {
	q.orderBy = orderBy
	return q
}

func (q *Query) CountSQL() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE 1=1%s", q.from, q.where)
}

func (q *Query) CountArgs() []interface{} {
	return q.args
}

// SQL returns the unpaginated select.
func (q *Query) SQL() string {
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE 1=1%s", q.cols, q.from, q.where)
	if q.orderBy != "" {
		sql += " ORDER BY " + q.orderBy
	}
	return sql
}

// Args returns the arguments for SQL.
func (q *Query) Args() []interface{} {
	return q.args
}

// DataSQL returns the select with LIMIT/OFFSET placeholders appended.
func (q *Query) DataSQL() string {
	return q.SQL() + fmt.Sprintf(" LIMIT $%d OFFSET $%d", q.idx, q.idx+1)
}

// DataArgs returns the filter arguments followed by limit and offset.
func (q *Query) DataArgs(limit, offset int) []interface{} {
	result := make([]interface{}, len(q.args)+2)
	copy(result, q.args)
	result[len(q.args)] = limit
	result[len(q.args)+1] = offset
	return result
}
