// Package cart detects which commerce plugin is active in the host store and
// presents cart-shaped configuration to the bridge handlers.
package cart

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"bridgeconnector/internal/config"
	"bridgeconnector/internal/database"

	"github.com/elliotchance/phpserialize"
)

// ErrCartNotDetected halts the dispatcher: no supported commerce plugin is
// active in this store.
var ErrCartNotDetected = errors.New("CART_PLUGIN_IS_NOT_DETECTED")

const (
	CartWoocommerce = "Woocommerce"
	CartWpecommerce = "Wpecommerce"
)

// Tables shared by all tenants of a multisite installation. Version probes
// against these use the base prefix, never the per-blog one.
var globalTables = map[string]bool{
	"users":            true,
	"usermeta":         true,
	"blogs":            true,
	"blogmeta":         true,
	"signups":          true,
	"site":             true,
	"sitemeta":         true,
	"sitecategories":   true,
	"registration_log": true,
}

// Adapter is the per-request cart configuration record.
type Adapter struct {
	CartType  string
	CartID    string
	TblPrefix string
	DBName    string

	ImagesDir              string
	CategoriesImagesDir    string
	ProductsImagesDir      string
	ManufacturersImagesDir string

	Languages []string
	CartVars  map[string]any

	cfg        *config.Config
	basePrefix string
}

func NewAdapter(cfg *config.Config) *Adapter {
	return &Adapter{
		CartType:   "Wordpress",
		TblPrefix:  cfg.TablePrefix,
		DBName:     cfg.DBName,
		ImagesDir:  cfg.UploadDir,
		Languages:  []string{},
		CartVars:   map[string]any{},
		cfg:        cfg,
		basePrefix: cfg.TablePrefix,
	}
}

// Detect classifies the active commerce plugin. requestCartID, when set, pins
// the expected cart and biases matching. On multisite the network-wide plugin
// list is consulted first, then each blog in turn; the first match wins.
func (a *Adapter) Detect(link *database.Link, requestCartID string) error {
	active := ""

	if a.cfg.Multisite {
		serialized, err := a.CartVersionFromDB(link, "meta_value", "sitemeta", "meta_key = 'active_sitewide_plugins'")
		if err == nil && serialized != "" {
			if plugins, err := sitewidePlugins(serialized); err == nil {
				active = matchPlugin(plugins, requestCartID)
			}
		}

		if active == "" {
			blogs, err := link.LocalQuery("SELECT blog_id FROM " + a.basePrefix + "blogs")
			if err != nil {
				return err
			}
			for _, blog := range blogs {
				id := fmt.Sprint(blog["blog_id"])
				if id != "1" {
					a.TblPrefix = a.basePrefix + id + "_"
				}
				if active = a.detectFromOptions(link, requestCartID); active != "" {
					break
				}
				a.TblPrefix = a.basePrefix
			}
		}
	} else {
		active = a.detectFromOptions(link, requestCartID)
	}

	blogPrefix := a.TblPrefix
	a.TblPrefix = a.basePrefix

	switch active {
	case "woocommerce":
		a.setWoocommerceData(link, blogPrefix)
	case "wp-e-commerce":
		a.setWpecommerceData(link, blogPrefix)
	default:
		return ErrCartNotDetected
	}

	return nil
}

func (a *Adapter) detectFromOptions(link *database.Link, requestCartID string) string {
	serialized, err := a.CartVersionFromDB(link, "option_value", "options", "option_name = 'active_plugins'")
	if err != nil || serialized == "" {
		return ""
	}
	plugins, err := activePlugins(serialized)
	if err != nil {
		return ""
	}
	return matchPlugin(plugins, requestCartID)
}

// matchPlugin classifies plugin paths. A pinned cart id restricts which
// fragments count as a match.
func matchPlugin(plugins []string, requestCartID string) string {
	for _, plugin := range plugins {
		switch requestCartID {
		case CartWoocommerce:
			if strings.Contains(plugin, "woocommerce.php") {
				return "woocommerce"
			}
		case CartWpecommerce:
			if strings.HasPrefix(plugin, "wp-e-commerce") || strings.HasPrefix(plugin, "wp-ecommerce") {
				return "wp-e-commerce"
			}
		case "":
			if strings.Contains(plugin, "woocommerce.php") {
				return "woocommerce"
			}
			if strings.HasPrefix(plugin, "wp-e-commerce") || strings.HasPrefix(plugin, "wp-ecommerce") {
				return "wp-e-commerce"
			}
		}
	}
	return ""
}

// CartVersionFromDB runs `SELECT field AS version FROM prefix+table WHERE
// where`, applying the global-table prefix exception.
func (a *Adapter) CartVersionFromDB(link *database.Link, field, table, where string) (string, error) {
	prefix := a.TblPrefix
	if globalTables[table] {
		prefix = a.basePrefix
	}

	rows, err := link.LocalQuery(
		"SELECT " + field + " AS version FROM " + prefix + table + " WHERE " + where)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", nil
	}
	return fmt.Sprint(rows[0]["version"]), nil
}

func (a *Adapter) pluginsDir() string {
	return filepath.Join(a.cfg.StoreBaseDir, "wp-content", "plugins")
}

func activePlugins(serialized string) ([]string, error) {
	values, err := phpserialize.UnmarshalIndexedArray([]byte(serialized))
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, fmt.Sprint(v))
	}
	return out, nil
}

// sitewidePlugins extracts the plugin paths from the network-activated map
// (plugin path => activation timestamp).
func sitewidePlugins(serialized string) ([]string, error) {
	values, err := phpserialize.UnmarshalAssociativeArray([]byte(serialized))
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(values))
	for k := range values {
		out = append(out, fmt.Sprint(k))
	}
	return out, nil
}
