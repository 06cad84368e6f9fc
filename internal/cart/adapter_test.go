package cart

import (
	"testing"

	"bridgeconnector/internal/config"
	"bridgeconnector/internal/database"

	"github.com/elliotchance/phpserialize"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLink(t *testing.T) *database.Link {
	t.Helper()
	link := database.NewLink(database.DefaultOpener("sqlite3", ":memory:"))
	t.Cleanup(link.Release)
	return link
}

func seedOptions(t *testing.T, link *database.Link, prefix string, options map[string]string) {
	t.Helper()
	require.NoError(t, link.LocalExec(
		"CREATE TABLE IF NOT EXISTS "+prefix+"options (option_name TEXT, option_value TEXT)"))
	for name, value := range options {
		require.NoError(t, link.LocalExec(
			"INSERT INTO "+prefix+"options (option_name, option_value) VALUES (?, ?)", name, value))
	}
}

func serializedPlugins(t *testing.T, plugins []string) string {
	t.Helper()
	values := make([]any, len(plugins))
	for i, p := range plugins {
		values[i] = p
	}
	data, err := phpserialize.Marshal(values, nil)
	require.NoError(t, err)
	return string(data)
}

func testConfig(prefix string, multisite bool) *config.Config {
	return &config.Config{
		DBName:      "wordpress",
		TablePrefix: prefix,
		Multisite:   multisite,
	}
}

func TestDetectWoocommerce(t *testing.T) {
	link := newTestLink(t)
	seedOptions(t, link, "wp_", map[string]string{
		"active_plugins":         serializedPlugins(t, []string{"akismet/akismet.php", "woocommerce/woocommerce.php"}),
		"woocommerce_db_version": "8.5.1",
	})

	a := NewAdapter(testConfig("wp_", false))
	require.NoError(t, a.Detect(link, ""))

	assert.Equal(t, CartWoocommerce, a.CartID)
	assert.Equal(t, "Wordpress", a.CartType)
	assert.Equal(t, "8.5.1", a.CartVars["dbVersion"])
	assert.Empty(t, a.Languages)
}

func TestDetectLoadsLanguages(t *testing.T) {
	link := newTestLink(t)
	seedOptions(t, link, "wp_", map[string]string{
		"active_plugins": serializedPlugins(t, []string{"woocommerce/woocommerce.php"}),
	})
	require.NoError(t, link.LocalExec(
		"CREATE TABLE wp_icl_translations (translation_id INTEGER PRIMARY KEY, element_type TEXT, element_id INTEGER, trid INTEGER, language_code TEXT)"))
	for i, code := range []string{"de", "en", "de"} {
		require.NoError(t, link.LocalExec(
			"INSERT INTO wp_icl_translations (translation_id, element_type, element_id, trid, language_code) VALUES (?, ?, ?, ?, ?)",
			i+1, "post_product", i+1, 1, code))
	}

	a := NewAdapter(testConfig("wp_", false))
	require.NoError(t, a.Detect(link, ""))
	assert.Equal(t, []string{"de", "en"}, a.Languages)
}

func TestDetectWpecommerce(t *testing.T) {
	link := newTestLink(t)
	seedOptions(t, link, "wp_", map[string]string{
		"active_plugins": serializedPlugins(t, []string{"wp-e-commerce/wp-shopping-cart.php"}),
		"wpsc_version":   "3.15.2",
	})

	a := NewAdapter(testConfig("wp_", false))
	require.NoError(t, a.Detect(link, ""))

	assert.Equal(t, CartWpecommerce, a.CartID)
	assert.Equal(t, "3.15.2", a.CartVars["dbVersion"])
}

func TestDetectNoPlugin(t *testing.T) {
	link := newTestLink(t)
	seedOptions(t, link, "wp_", map[string]string{
		"active_plugins": serializedPlugins(t, []string{"akismet/akismet.php"}),
	})

	a := NewAdapter(testConfig("wp_", false))
	err := a.Detect(link, "")
	assert.ErrorIs(t, err, ErrCartNotDetected)
}

func TestDetectPinnedCartIgnoresOther(t *testing.T) {
	link := newTestLink(t)
	seedOptions(t, link, "wp_", map[string]string{
		"active_plugins": serializedPlugins(t, []string{"woocommerce/woocommerce.php"}),
	})

	a := NewAdapter(testConfig("wp_", false))
	err := a.Detect(link, CartWpecommerce)
	assert.ErrorIs(t, err, ErrCartNotDetected)
}

func TestDetectMultisiteBlogScan(t *testing.T) {
	link := newTestLink(t)

	require.NoError(t, link.LocalExec("CREATE TABLE wp_sitemeta (meta_key TEXT, meta_value TEXT)"))
	require.NoError(t, link.LocalExec("CREATE TABLE wp_blogs (blog_id INTEGER)"))
	require.NoError(t, link.LocalExec("INSERT INTO wp_blogs (blog_id) VALUES (1), (2)"))

	// Blog 1 has no commerce plugin, blog 2 runs WooCommerce.
	seedOptions(t, link, "wp_", map[string]string{
		"active_plugins": serializedPlugins(t, []string{"akismet/akismet.php"}),
	})
	seedOptions(t, link, "wp_2_", map[string]string{
		"active_plugins":         serializedPlugins(t, []string{"woocommerce/woocommerce.php"}),
		"woocommerce_db_version": "8.2.0",
	})

	a := NewAdapter(testConfig("wp_", true))
	require.NoError(t, a.Detect(link, ""))

	assert.Equal(t, CartWoocommerce, a.CartID)
	assert.Equal(t, "8.2.0", a.CartVars["dbVersion"])
	// Global table lookups keep the base prefix after detection.
	assert.Equal(t, "wp_", a.TblPrefix)
}

func TestCartVersionGlobalTablePrefix(t *testing.T) {
	link := newTestLink(t)
	require.NoError(t, link.LocalExec("CREATE TABLE wp_users (user_login TEXT)"))
	require.NoError(t, link.LocalExec("INSERT INTO wp_users (user_login) VALUES ('admin')"))

	a := NewAdapter(testConfig("wp_", true))
	a.TblPrefix = "wp_3_"

	got, err := a.CartVersionFromDB(link, "user_login", "users", "1 = 1")
	require.NoError(t, err)
	assert.Equal(t, "admin", got)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register("product_add", func(params map[string]any) (any, error) { return "ok", nil })
	r.Register("category_add", func(params map[string]any) (any, error) { return nil, nil })

	fn, ok := r.Get("product_add")
	require.True(t, ok)
	out, err := fn(nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	_, ok = r.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, []string{"category_add", "product_add"}, r.Names())
}
