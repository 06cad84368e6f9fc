package bridge

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"bridgeconnector/internal/database"

	"github.com/goccy/go-json"
)

var (
	lastInsertRe = regexp.MustCompile(`_A2C_LAST_\{([a-zA-Z0-9_-]{1,32})\}_INSERT_ID_`)
	useFieldRe   = regexp.MustCompile(`A2C_USE_FIELD_\{([\w\s-]+?)\}_FROM_\{([a-zA-Z0-9_-]{1,32})\}_QUERY`)
)

type multiqueryItem struct {
	Res           any              `json:"res"`
	FetchedFields []database.Field `json:"fetchedFields,omitempty"`
	InsertID      int64            `json:"insertId"`
	AffectedRows  int64            `json:"affectedRows"`
}

type batchQuery struct {
	id  string
	sql string
}

// orderedQueries walks the JSON object token by token so the batch keeps the
// caller's ordering. Ids are free-form strings; sorting them would break the
// dependency chains the placeholders encode.
func orderedQueries(data []byte) ([]batchQuery, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("queries payload is not a JSON object")
	}

	var out []batchQuery
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		id, ok := tok.(string)
		if !ok {
			return nil, errors.New("queries payload has a non-string key")
		}
		var sql string
		if err := dec.Decode(&sql); err != nil {
			return nil, err
		}
		out = append(out, batchQuery{id: id, sql: sql})
	}
	return out, nil
}

// actionMultiquery runs a batch of dependent statements in caller order.
// Later statements may reference earlier results through the insert-id and
// field placeholders. The first failure aborts the batch.
func actionMultiquery(ctx *Context) (string, error) {
	decoded, err := ctx.Env.Decode(ctx.Params["queries"])
	if err != nil {
		return "", err
	}

	queries, err := orderedQueries(decoded)
	if err != nil {
		return "", err
	}

	applySQLSettings(ctx, ctx.Params["sql_settings"])

	fetchMode := fetchModeFromParams(ctx.Params)
	opts := database.Options{
		FetchFields: ctx.Params["fetchFields"] == "1",
		SetNames:    ctx.Params["set_names"],
	}

	results := make(map[string]multiqueryItem, len(queries))
	insertIDs := map[string]int64{}
	rowsByID := map[string][]map[string]any{}

	for i, q := range queries {
		sqlText := q.sql
		if i > 0 {
			sqlText = substitutePlaceholders(sqlText, insertIDs, rowsByID)
		}

		res, err := ctx.Link.Query(sqlText, fetchMode, opts)
		if err != nil {
			return "", err
		}
		if res.Err != "" {
			body, err := json.Marshal(queryError{
				Error:         res.Err,
				Query:         sqlText,
				FailedQueryID: q.id,
			})
			if err != nil {
				return "", err
			}
			return ctx.Env.Encode(body)
		}

		results[q.id] = multiqueryItem{
			Res:           res.Rows,
			FetchedFields: res.Fields,
			InsertID:      ctx.Link.LastInsertID(),
			AffectedRows:  ctx.Link.AffectedRows(),
		}
		insertIDs[q.id] = ctx.Link.LastInsertID()
		if rows, ok := res.Rows.([]map[string]any); ok {
			rowsByID[q.id] = rows
		}
	}

	body, err := json.Marshal(results)
	if err != nil {
		return "", err
	}
	return ctx.Env.Encode(body)
}

func substitutePlaceholders(query string, insertIDs map[string]int64, rowsByID map[string][]map[string]any) string {
	query = lastInsertRe.ReplaceAllStringFunc(query, func(m string) string {
		id := lastInsertRe.FindStringSubmatch(m)[1]
		return strconv.FormatInt(insertIDs[id], 10)
	})

	return useFieldRe.ReplaceAllStringFunc(query, func(m string) string {
		groups := useFieldRe.FindStringSubmatch(m)
		return fieldValueList(rowsByID[groups[2]], groups[1])
	})
}

// fieldValueList renders the distinct values of one column as a SQL value
// list, in first-seen order. NULLs pass through unquoted.
func fieldValueList(rows []map[string]any, column string) string {
	seen := map[string]bool{}
	var parts []string
	for _, row := range rows {
		value, ok := row[column]
		if !ok {
			continue
		}
		var rendered string
		if value == nil {
			rendered = "NULL"
		} else {
			rendered = "'" + escapeSQLString(fmt.Sprint(value)) + "'"
		}
		if seen[rendered] {
			continue
		}
		seen[rendered] = true
		parts = append(parts, rendered)
	}
	return strings.Join(parts, ",")
}
