package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// DatabaseClient handles PostgREST row operations.
type DatabaseClient struct {
	client *Client
}

// From starts a query builder for a table.
func (d *DatabaseClient) From(table string) *QueryBuilder {
	return &QueryBuilder{
		client:  d.client,
		table:   table,
		method:  "GET",
		columns: "*",
		headers: make(map[string]string),
	}
}

// QueryBuilder builds and executes row-level CRUD queries.
type QueryBuilder struct {
	client      *Client
	table       string
	method      string
	columns     string
	filters     []string
	orders      []string
	limitVal    *int
	offsetVal   *int
	body        []byte
	headers     map[string]string
	single      bool
	accessToken string
}

// Select specifies columns to select.
func (q *QueryBuilder) Select(columns string) *QueryBuilder {
	q.method = "GET"
	q.columns = columns
	return q
}

// Insert inserts records.
func (q *QueryBuilder) Insert(data any) *QueryBuilder {
	q.method = "POST"
	body, _ := json.Marshal(data)
	q.body = body
	q.headers["Prefer"] = "return=representation"
	return q
}

// Upsert upserts records.
func (q *QueryBuilder) Upsert(data any, onConflict string) *QueryBuilder {
	q.method = "POST"
	body, _ := json.Marshal(data)
	q.body = body
	q.headers["Prefer"] = "return=representation,resolution=merge-duplicates"
	if onConflict != "" {
		q.headers["on-conflict"] = onConflict
	}
	return q
}

// Update updates matching records.
func (q *QueryBuilder) Update(data any) *QueryBuilder {
	q.method = "PATCH"
	body, _ := json.Marshal(data)
	q.body = body
	q.headers["Prefer"] = "return=representation"
	return q
}

// Delete deletes matching records.
func (q *QueryBuilder) Delete() *QueryBuilder {
	q.method = "DELETE"
	q.headers["Prefer"] = "return=representation"
	return q
}

// Eq adds an equality filter.
func (q *QueryBuilder) Eq(column string, value any) *QueryBuilder {
	q.filters = append(q.filters, fmt.Sprintf("%s=eq.%v", column, value))
	return q
}

// Neq adds a not-equal filter.
func (q *QueryBuilder) Neq(column string, value any) *QueryBuilder {
	q.filters = append(q.filters, fmt.Sprintf("%s=neq.%v", column, value))
	return q
}

// Gt adds a greater-than filter.
func (q *QueryBuilder) Gt(column string, value any) *QueryBuilder {
	q.filters = append(q.filters, fmt.Sprintf("%s=gt.%v", column, value))
	return q
}

// Gte adds a greater-than-or-equal filter.
func (q *QueryBuilder) Gte(column string, value any) *QueryBuilder {
	q.filters = append(q.filters, fmt.Sprintf("%s=gte.%v", column, value))
	return q
}

// Lt adds a less-than filter.
func (q *QueryBuilder) Lt(column string, value any) *QueryBuilder {
	q.filters = append(q.filters, fmt.Sprintf("%s=lt.%v", column, value))
	return q
}

// Lte adds a less-than-or-equal filter.
func (q *QueryBuilder) Lte(column string, value any) *QueryBuilder {
	q.filters = append(q.filters, fmt.Sprintf("%s=lte.%v", column, value))
	return q
}

// Like adds a LIKE filter.
func (q *QueryBuilder) Like(column, pattern string) *QueryBuilder {
	q.filters = append(q.filters, fmt.Sprintf("%s=like.%s", column, url.QueryEscape(pattern)))
	return q
}

// ILike adds a case-insensitive LIKE filter.
func (q *QueryBuilder) ILike(column, pattern string) *QueryBuilder {
	q.filters = append(q.filters, fmt.Sprintf("%s=ilike.%s", column, url.QueryEscape(pattern)))
	return q
}

// Is adds an IS filter (null, true, false).
func (q *QueryBuilder) Is(column string, value any) *QueryBuilder {
	q.filters = append(q.filters, fmt.Sprintf("%s=is.%v", column, value))
	return q
}

// In adds an IN filter.
func (q *QueryBuilder) In(column string, values []any) *QueryBuilder {
	strValues := make([]string, len(values))
	for i, v := range values {
		strValues[i] = fmt.Sprintf("%v", v)
	}
	q.filters = append(q.filters, fmt.Sprintf("%s=in.(%s)", column, strings.Join(strValues, ",")))
	return q
}

// Filter adds a raw filter.
func (q *QueryBuilder) Filter(column string, op FilterOperator, value any) *QueryBuilder {
	q.filters = append(q.filters, fmt.Sprintf("%s=%s.%v", column, op, value))
	return q
}

// Order adds an order clause. Ascending unless a direction is given.
func (q *QueryBuilder) Order(column string, opts ...OrderDirection) *QueryBuilder {
	dir := OrderAsc
	if len(opts) > 0 {
		dir = opts[0]
	}
	q.orders = append(q.orders, fmt.Sprintf("%s.%s", column, dir))
	return q
}

// Limit sets the maximum number of rows.
func (q *QueryBuilder) Limit(n int) *QueryBuilder {
	q.limitVal = &n
	return q
}

// Offset sets the number of rows to skip.
func (q *QueryBuilder) Offset(n int) *QueryBuilder {
	q.offsetVal = &n
	return q
}

// Single expects exactly one row.
func (q *QueryBuilder) Single() *QueryBuilder {
	q.single = true
	q.headers["Accept"] = "application/vnd.pgrst.object+json"
	return q
}

// WithToken executes the query as the token's identity so row-level
// security applies.
func (q *QueryBuilder) WithToken(token string) *QueryBuilder {
	q.accessToken = token
	return q
}

// Execute runs the query and returns the raw response body.
func (q *QueryBuilder) Execute(ctx context.Context) ([]byte, error) {
	urlStr := q.buildURL()

	var (
		respBody   []byte
		statusCode int
		err        error
	)
	if q.accessToken != "" {
		respBody, statusCode, err = q.client.requestWithToken(ctx, q.method, urlStr, q.body, q.headers, q.accessToken)
	} else {
		respBody, statusCode, err = q.client.request(ctx, q.method, urlStr, q.body, q.headers)
	}
	if err != nil {
		return nil, err
	}
	if statusCode >= 400 {
		return nil, parseError(respBody, statusCode)
	}
	return respBody, nil
}

// ExecuteInto runs the query and unmarshals the response into dest.
func (q *QueryBuilder) ExecuteInto(ctx context.Context, dest any) error {
	data, err := q.Execute(ctx)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// buildURL builds the request URL.
func (q *QueryBuilder) buildURL() string {
	urlStr := q.client.restURL + "/" + url.PathEscape(q.table)

	params := make([]string, 0)
	if q.method == "GET" && q.columns != "" {
		params = append(params, "select="+url.QueryEscape(q.columns))
	}
	params = append(params, q.filters...)
	if len(q.orders) > 0 {
		params = append(params, "order="+strings.Join(q.orders, ","))
	}
	if q.limitVal != nil {
		params = append(params, fmt.Sprintf("limit=%d", *q.limitVal))
	}
	if q.offsetVal != nil {
		params = append(params, fmt.Sprintf("offset=%d", *q.offsetVal))
	}

	if len(params) > 0 {
		urlStr += "?" + strings.Join(params, "&")
	}
	return urlStr
}
