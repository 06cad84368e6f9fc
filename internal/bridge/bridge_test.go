package bridge

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"bridgeconnector/internal/cart"
	"bridgeconnector/internal/commerce/woocommerce"
	"bridgeconnector/internal/config"
	"bridgeconnector/internal/crypto"
	"bridgeconnector/internal/database"
	"bridgeconnector/internal/logger"

	"github.com/elliotchance/phpserialize"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bridgeSchema = []string{
	`CREATE TABLE wp_options (
		option_id INTEGER PRIMARY KEY AUTOINCREMENT,
		option_name TEXT,
		option_value TEXT
	)`,
	`CREATE TABLE wp_terms (
		term_id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT,
		slug TEXT,
		term_group INTEGER DEFAULT 0
	)`,
	`CREATE TABLE wp_term_taxonomy (
		term_taxonomy_id INTEGER PRIMARY KEY AUTOINCREMENT,
		term_id INTEGER,
		taxonomy TEXT,
		description TEXT DEFAULT '',
		parent INTEGER DEFAULT 0,
		count INTEGER DEFAULT 0
	)`,
	`CREATE TABLE wp_termmeta (
		meta_id INTEGER PRIMARY KEY AUTOINCREMENT,
		term_id INTEGER,
		meta_key TEXT,
		meta_value TEXT
	)`,
	`CREATE TABLE items (id INTEGER PRIMARY KEY AUTOINCREMENT, sku TEXT)`,
	`CREATE TABLE widgets (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT)`,
	`CREATE TABLE widget_log (id INTEGER PRIMARY KEY AUTOINCREMENT, widget_id INTEGER, note TEXT)`,
}

func newTestBridge(t *testing.T) (*Bridge, *crypto.Envelope, *database.Database) {
	return newTestBridgeEnv(t, crypto.NewPlain())
}

func newTestBridgeEnv(t *testing.T, env *crypto.Envelope) (*Bridge, *crypto.Envelope, *database.Database) {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{
		DatabaseURL:  "sqlite://" + filepath.Join(dir, "store.db"),
		DBName:       "wordpress",
		TablePrefix:  "wp_",
		StoreBaseDir: dir,
		UploadDir:    dir,
		KeyID:        "key-1",
	}

	db, err := database.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	for _, ddl := range bridgeSchema {
		require.NoError(t, db.DB.Exec(ddl).Error)
	}

	plugins, err := phpserialize.Marshal([]any{"woocommerce/woocommerce.php"}, nil)
	require.NoError(t, err)
	require.NoError(t, db.DB.Exec(
		"INSERT INTO wp_options (option_name, option_value) VALUES (?, ?), (?, ?)",
		"active_plugins", string(plugins),
		"woocommerce_db_version", "8.5.1").Error)

	store := woocommerce.NewStore(db.DB, "wp_", logger.New("error"))
	reg := cart.NewRegistry()
	RegisterWoocommerceActions(reg, store)

	return New(cfg, env, db, store, reg, logger.New("error")), env, db
}

func encode(t *testing.T, env *crypto.Envelope, s string) string {
	t.Helper()
	out, err := env.Encode([]byte(s))
	require.NoError(t, err)
	return out
}

func decodeJSON(t *testing.T, env *crypto.Envelope, body string, dst any) {
	t.Helper()
	raw, err := env.Decode(body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, dst))
}

func TestRunEmptyActionReturnsBanner(t *testing.T) {
	b, _, _ := newTestBridge(t)
	assert.Equal(t, "BRIDGE INSTALLED. Version: 167", b.Run("", nil))
}

func TestRunUnknownAction(t *testing.T) {
	b, _, _ := newTestBridge(t)
	assert.Equal(t, "ACTION_DOES_NOT_EXIST", b.Run("nosuchaction", nil))
}

func TestRunStripsDotsFromAction(t *testing.T) {
	b, _, _ := newTestBridge(t)
	assert.Equal(t, "ACTION_DOES_NOT_EXIST", b.Run("../../etc/passwd", nil))
}

func TestCheckBridge(t *testing.T) {
	b, _, _ := newTestBridge(t)
	assert.Equal(t, "BRIDGE_OK", b.Run("checkbridge", map[string]string{}))
}

func TestCheckBridgeReportsKeyWhenEncrypted(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	b, _, _ := newTestBridgeEnv(t, crypto.NewRSA(&key.PublicKey, key, "key-1"))

	out := b.Run("checkbridge", map[string]string{})
	var resp map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "BRIDGE_OK", resp["message"])
	assert.Equal(t, "key-1", resp["key_id"])
	assert.Equal(t, "167", resp["bridge_version"])
}

func TestQueryActionRoundTrip(t *testing.T) {
	b, env, db := newTestBridge(t)
	require.NoError(t, db.DB.Exec("INSERT INTO items (sku) VALUES ('A'), ('A'), ('B')").Error)

	out := b.Run("query", map[string]string{
		"query":       encode(t, env, "SELECT sku FROM items ORDER BY id"),
		"fetchFields": "1",
	})

	var result struct {
		Res           []map[string]any `json:"res"`
		FetchedFields []database.Field `json:"fetchedFields"`
		AffectedRows  int64            `json:"affectedRows"`
	}
	decodeJSON(t, env, out, &result)

	require.Len(t, result.Res, 3)
	assert.Equal(t, "A", result.Res[0]["sku"])
	require.NotEmpty(t, result.FetchedFields)
	assert.Equal(t, "sku", result.FetchedFields[0].Name)
	assert.EqualValues(t, 3, result.AffectedRows)
}

func TestQueryActionReportsSQLError(t *testing.T) {
	b, env, _ := newTestBridge(t)

	out := b.Run("query", map[string]string{
		"query": encode(t, env, "SELECT * FROM missing_table"),
	})

	var result struct {
		Error         string `json:"error"`
		FailedQueryID string `json:"failedQueryId"`
	}
	decodeJSON(t, env, out, &result)
	assert.Contains(t, result.Error, "MySQL Query Error")
	assert.Equal(t, "0", result.FailedQueryID)
}

func TestMultiqueryInsertIDPlaceholder(t *testing.T) {
	b, env, db := newTestBridge(t)
	for i := 0; i < 6; i++ {
		require.NoError(t, db.DB.Exec("INSERT INTO widgets (name) VALUES ('seed')").Error)
	}

	queries := `{
		"1": "INSERT INTO widgets (name) VALUES ('fresh')",
		"2": "INSERT INTO widget_log (widget_id, note) VALUES (_A2C_LAST_{1}_INSERT_ID_, 'made')"
	}`

	out := b.Run("multiquery", map[string]string{
		"queries": encode(t, env, queries),
	})

	var results map[string]multiqueryItem
	decodeJSON(t, env, out, &results)
	assert.EqualValues(t, 7, results["1"].InsertID)

	var loggedID int64
	require.NoError(t, db.DB.Table("widget_log").Select("widget_id").Scan(&loggedID).Error)
	assert.EqualValues(t, 7, loggedID)
}

func TestMultiqueryRunsInPayloadOrder(t *testing.T) {
	b, env, db := newTestBridge(t)
	require.NoError(t, db.DB.Exec("INSERT INTO widgets (name) VALUES ('seed')").Error)

	// Key sorting would run "alpha" first and lose the dependency.
	queries := `{
		"zulu": "INSERT INTO widgets (name) VALUES ('fresh')",
		"alpha": "INSERT INTO widget_log (widget_id, note) VALUES (_A2C_LAST_{zulu}_INSERT_ID_, 'made')"
	}`

	out := b.Run("multiquery", map[string]string{
		"queries": encode(t, env, queries),
	})

	var results map[string]multiqueryItem
	decodeJSON(t, env, out, &results)
	assert.EqualValues(t, 2, results["zulu"].InsertID)

	var loggedID int64
	require.NoError(t, db.DB.Table("widget_log").Select("widget_id").Scan(&loggedID).Error)
	assert.EqualValues(t, 2, loggedID)
}

func TestMultiqueryFetchesFields(t *testing.T) {
	b, env, db := newTestBridge(t)
	require.NoError(t, db.DB.Exec("INSERT INTO items (sku) VALUES ('A')").Error)

	out := b.Run("multiquery", map[string]string{
		"queries":     encode(t, env, `{"1": "SELECT sku FROM items"}`),
		"fetchFields": "1",
	})

	var results map[string]multiqueryItem
	decodeJSON(t, env, out, &results)
	require.NotEmpty(t, results["1"].FetchedFields)
	assert.Equal(t, "sku", results["1"].FetchedFields[0].Name)
}

func TestMultiqueryFieldPlaceholderDedups(t *testing.T) {
	b, env, db := newTestBridge(t)
	require.NoError(t, db.DB.Exec("INSERT INTO items (sku) VALUES ('A'), ('A'), ('B')").Error)

	queries := `{
		"1": "SELECT sku FROM items",
		"2": "SELECT COUNT(*) AS n FROM items WHERE sku IN (A2C_USE_FIELD_{sku}_FROM_{1}_QUERY)"
	}`

	out := b.Run("multiquery", map[string]string{
		"queries": encode(t, env, queries),
	})

	var results map[string]multiqueryItem
	decodeJSON(t, env, out, &results)

	rows := results["2"].Res.([]any)
	require.Len(t, rows, 1)
	n := rows[0].(map[string]any)["n"]
	assert.EqualValues(t, 3, n)
}

func TestMultiqueryAbortsOnFirstFailure(t *testing.T) {
	b, env, db := newTestBridge(t)

	queries := `{
		"1": "INSERT INTO widgets (name) VALUES ('ok')",
		"2": "INSERT INTO missing_table (x) VALUES (1)",
		"3": "INSERT INTO widgets (name) VALUES ('never')"
	}`

	out := b.Run("multiquery", map[string]string{
		"queries": encode(t, env, queries),
	})

	var result struct {
		Error         string `json:"error"`
		FailedQueryID string `json:"failedQueryId"`
		Query         string `json:"query"`
	}
	decodeJSON(t, env, out, &result)
	assert.Equal(t, "2", result.FailedQueryID)
	assert.Contains(t, result.Error, "MySQL Query Error")

	var n int64
	require.NoError(t, db.DB.Table("widgets").Where("name = ?", "never").Count(&n).Error)
	assert.EqualValues(t, 0, n)
}

func TestFieldValueListOrderAndNulls(t *testing.T) {
	rows := []map[string]any{
		{"sku": "A"},
		{"sku": "A"},
		{"sku": "B"},
		{"sku": nil},
	}
	assert.Equal(t, "'A','B',NULL", fieldValueList(rows, "sku"))
}

func TestGetConfig(t *testing.T) {
	b, env, _ := newTestBridge(t)

	out := b.Run("getconfig", map[string]string{})

	var cfg map[string]any
	decodeJSON(t, env, out, &cfg)
	assert.Equal(t, "167", cfg["bridgeVersion"])
	assert.Equal(t, "key-1", cfg["bridgeKeyId"])
	assert.Equal(t, "wordpress", cfg["databaseName"])
	assert.Equal(t, "wp_", cfg["cartDbPrefix"])
	assert.Equal(t, "Woocommerce", cfg["cartId"])
	assert.Equal(t, true, cfg["zlibSupported"])
}

func TestSaveFileBase64(t *testing.T) {
	b, _, _ := newTestBridge(t)

	content := base64.StdEncoding.EncodeToString([]byte("hello"))
	out := b.Run("savefile", map[string]string{
		"content": content,
		"target":  "docs/readme.txt",
	})
	require.Equal(t, "OK", out)

	data, err := os.ReadFile(filepath.Join(b.cfg.UploadDir, "docs", "readme.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestSaveFileRejectsExtension(t *testing.T) {
	b, _, _ := newTestBridge(t)

	out := b.Run("savefile", map[string]string{
		"content": base64.StdEncoding.EncodeToString([]byte("x")),
		"target":  "payload.exe",
	})
	assert.Equal(t, "ERROR_INVALID_FILE_EXTENSION", out)
}

func TestSaveFileRejectsTraversal(t *testing.T) {
	b, _, _ := newTestBridge(t)

	out := b.Run("savefile", map[string]string{
		"content": base64.StdEncoding.EncodeToString([]byte("x")),
		"target":  "../outside.txt",
	})
	assert.Equal(t, "ERROR_INVALID_SOURCE", out)
}

func TestSaveFileRelativeUploadDirAnchorsAtBaseDir(t *testing.T) {
	b, _, _ := newTestBridge(t)
	b.cfg.UploadDir = filepath.Join("wp-content", "uploads")

	out := b.Run("savefile", map[string]string{
		"content": base64.StdEncoding.EncodeToString([]byte("pic")),
		"target":  "img/a.txt",
	})
	require.Equal(t, "OK", out)

	data, err := os.ReadFile(filepath.Join(b.cfg.StoreBaseDir, "wp-content", "uploads", "img", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "pic", string(data))
}

func TestBatchSaveFileReportsPerFile(t *testing.T) {
	b, _, _ := newTestBridge(t)

	files, err := json.Marshal([]saveFileRequest{
		{ID: "1", Content: base64.StdEncoding.EncodeToString([]byte("a")), Target: "a.txt"},
		{ID: "2", Content: base64.StdEncoding.EncodeToString([]byte("b")), Target: "b.exe"},
	})
	require.NoError(t, err)

	out := b.Run("batchsavefile", map[string]string{"files": string(files)})

	var statuses map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &statuses))
	assert.Equal(t, "OK", statuses["1"])
	assert.Equal(t, "ERROR_INVALID_FILE_EXTENSION", statuses["2"])
}

func TestBaseDirFs(t *testing.T) {
	b, _, _ := newTestBridge(t)
	assert.Equal(t, b.cfg.StoreBaseDir, b.Run("basedirfs", map[string]string{}))
}

func TestPlatformActionDispatch(t *testing.T) {
	b, env, db := newTestBridge(t)

	data, err := json.Marshal(platformRequest{
		Action: "category_add",
		Params: map[string]any{"name": "Books"},
	})
	require.NoError(t, err)

	out := b.Run("platform_action", map[string]string{
		"data": encode(t, env, string(data)),
	})

	var resp struct {
		ErrorCode int            `json:"error_code"`
		Result    map[string]any `json:"result"`
	}
	decodeJSON(t, env, out, &resp)
	assert.Equal(t, 0, resp.ErrorCode)
	assert.NotNil(t, resp.Result["category_id"])

	var n int64
	require.NoError(t, db.DB.Table("wp_terms").Where("name = ?", "Books").Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestPlatformActionGetPlugins(t *testing.T) {
	b, env, _ := newTestBridge(t)

	data, err := json.Marshal(platformRequest{Action: "get_plugins"})
	require.NoError(t, err)

	out := b.Run("platform_action", map[string]string{
		"data": encode(t, env, string(data)),
	})

	var resp struct {
		ErrorCode int `json:"error_code"`
		Result    struct {
			Plugins []string `json:"plugins"`
		} `json:"result"`
	}
	decodeJSON(t, env, out, &resp)
	assert.Equal(t, 0, resp.ErrorCode)
	assert.Contains(t, resp.Result.Plugins, "woocommerce/woocommerce.php")
}

func TestPlatformActionUnknown(t *testing.T) {
	b, env, _ := newTestBridge(t)

	data, err := json.Marshal(platformRequest{Action: "teleport"})
	require.NoError(t, err)

	out := b.Run("platform_action", map[string]string{
		"data": encode(t, env, string(data)),
	})

	var resp struct {
		ErrorCode int    `json:"error_code"`
		Error     string `json:"error"`
	}
	decodeJSON(t, env, out, &resp)
	assert.Equal(t, 2, resp.ErrorCode)
	assert.Equal(t, "PLATFORM_ACTION_DOES_NOT_EXIST", resp.Error)
}
