package cart

import (
	"fmt"
	"path/filepath"

	"bridgeconnector/internal/database"
)

func (a *Adapter) setWoocommerceData(link *database.Link, blogPrefix string) {
	a.CartID = CartWoocommerce

	saved := a.TblPrefix
	a.TblPrefix = blogPrefix
	version, err := a.CartVersionFromDB(link, "option_value", "options", "option_name = 'woocommerce_db_version'")
	a.TblPrefix = saved

	if err == nil && version != "" {
		a.CartVars["dbVersion"] = version
	}

	a.loadLanguages(link, blogPrefix)

	a.CategoriesImagesDir = filepath.Join(a.ImagesDir, "images", "categories")
	a.ProductsImagesDir = filepath.Join(a.ImagesDir, "images", "products")
	a.ManufacturersImagesDir = filepath.Join(a.ImagesDir, "images")
}

// loadLanguages reads the active language codes from the multilingual layer's
// translation table. Stores without one simply report no languages.
func (a *Adapter) loadLanguages(link *database.Link, blogPrefix string) {
	rows, err := link.LocalQuery(
		"SELECT DISTINCT language_code FROM " + blogPrefix + "icl_translations ORDER BY language_code")
	if err != nil {
		return
	}
	for _, row := range rows {
		a.Languages = append(a.Languages, fmt.Sprint(row["language_code"]))
	}
}
