package bridge

import (
	"bridgeconnector/internal/database"

	"github.com/goccy/go-json"
)

type queryError struct {
	Error         string `json:"error"`
	Query         string `json:"query"`
	FailedQueryID string `json:"failedQueryId"`
}

type queryResult struct {
	Res           any              `json:"res"`
	FetchedFields []database.Field `json:"fetchedFields,omitempty"`
	InsertID      int64            `json:"insertId"`
	AffectedRows  int64            `json:"affectedRows"`
}

type sqlSettings struct {
	SQLModes     string            `json:"sql_modes"`
	SQLVariables map[string]string `json:"sql_variables"`
}

func fetchModeFromParams(params map[string]string) database.FetchMode {
	switch params["fetchMode"] {
	case "2":
		return database.FetchIndexed
	case "3":
		return database.FetchObject
	default:
		return database.FetchAssoc
	}
}

// applySQLSettings tunes the session before user queries run. Failures are
// logged and otherwise ignored; the query decides its own fate.
func applySQLSettings(ctx *Context, raw string) {
	if raw == "" {
		return
	}
	var settings sqlSettings
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		ctx.Log.Warn("bad sql_settings: %v", err)
		return
	}
	if settings.SQLModes != "" {
		modes, err := ctx.Env.Decode(settings.SQLModes)
		if err == nil {
			if err := ctx.Link.LocalExec("SET SESSION SQL_MODE = '" + sanitizeSQLModes(string(modes)) + "'"); err != nil {
				ctx.Log.Warn("set sql_mode failed: %v", err)
			}
		}
	}
	for name, value := range settings.SQLVariables {
		decoded, err := ctx.Env.Decode(value)
		if err != nil {
			ctx.Log.Warn("bad sql variable %s: %v", name, err)
			continue
		}
		if err := ctx.Link.LocalExec("SET SESSION " + sanitizeIdent(name) + " = '" + escapeSQLString(string(decoded)) + "'"); err != nil {
			ctx.Log.Warn("set variable %s failed: %v", name, err)
		}
	}
}

func actionQuery(ctx *Context) (string, error) {
	sqlBytes, err := ctx.Env.Decode(ctx.Params["query"])
	if err != nil {
		return "", err
	}
	sqlText := string(sqlBytes)

	applySQLSettings(ctx, ctx.Params["sql_settings"])

	res, err := ctx.Link.Query(sqlText, fetchModeFromParams(ctx.Params), database.Options{
		FetchFields: ctx.Params["fetchFields"] == "1",
		SetNames:    ctx.Params["set_names"],
	})
	if err != nil {
		return "", err
	}

	var payload any
	if res.Err != "" {
		payload = queryError{Error: res.Err, Query: sqlText, FailedQueryID: "0"}
	} else {
		payload = queryResult{
			Res:           res.Rows,
			FetchedFields: res.Fields,
			InsertID:      ctx.Link.LastInsertID(),
			AffectedRows:  ctx.Link.AffectedRows(),
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return ctx.Env.Encode(body)
}

func sanitizeSQLModes(s string) string {
	return escapeSQLString(s)
}

func sanitizeIdent(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '_' || r == '.' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			out = append(out, r)
		}
	}
	return string(out)
}

// escapeSQLString backslash-escapes quoting characters, matching addslashes.
func escapeSQLString(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\'', '"', '\\':
			out = append(out, '\\', s[i])
		case 0:
			out = append(out, '\\', '0')
		default:
			out = append(out, s[i])
		}
	}
	return string(out)
}
