package cart

import (
	"os"
	"path/filepath"
	"regexp"

	"bridgeconnector/internal/database"
)

var wpscVersionRe = regexp.MustCompile(`define\(\s*'WPSC_VERSION'\s*,\s*'([^']+)'`)

func (a *Adapter) setWpecommerceData(link *database.Link, blogPrefix string) {
	a.CartID = CartWpecommerce

	saved := a.TblPrefix
	a.TblPrefix = blogPrefix
	version, err := a.CartVersionFromDB(link, "option_value", "options", "option_name = 'wpsc_version'")
	a.TblPrefix = saved

	if err != nil || version == "" {
		version = a.wpscVersionFromPlugin()
	}
	if version != "" {
		a.CartVars["dbVersion"] = version
	}

	a.loadLanguages(link, blogPrefix)

	// The plugin ships under a handful of directory names depending on how
	// it was installed.
	for _, dir := range []string{"wp-e-commerce", "wp-ecommerce", "wp-shopping-cart"} {
		if _, statErr := os.Stat(filepath.Join(a.pluginsDir(), dir)); statErr == nil {
			a.CartVars["pluginDir"] = dir
			break
		}
	}

	a.CategoriesImagesDir = filepath.Join(a.ImagesDir, "wpsc", "category_images")
	a.ProductsImagesDir = filepath.Join(a.ImagesDir, "wpsc", "product_images")
	a.ManufacturersImagesDir = a.ImagesDir
}

func (a *Adapter) wpscVersionFromPlugin() string {
	for _, dir := range []string{"wp-e-commerce", "wp-ecommerce", "wp-shopping-cart"} {
		data, err := os.ReadFile(filepath.Join(a.pluginsDir(), dir, "wp-shopping-cart.php"))
		if err != nil {
			continue
		}
		if m := wpscVersionRe.FindSubmatch(data); m != nil {
			return string(m[1])
		}
	}
	return ""
}
