package bridge

import (
	"runtime/debug"
	"time"

	"github.com/goccy/go-json"
)

// actionGetConfig dumps the store configuration the connector needs to plan
// its requests.
func actionGetConfig(ctx *Context) (string, error) {
	limit := debug.SetMemoryLimit(-1)

	payload := map[string]any{
		"images": map[string]string{
			"imagesPath":              ctx.Cfg.ImagesDir,
			"categoriesImagesPath":    ctx.Cfg.CategoriesImagesDir,
			"productsImagesPath":      ctx.Cfg.ProductsImagesDir,
			"manufacturersImagesPath": ctx.Cfg.ManufacturersImagesDir,
		},
		"languages":     ctx.Cfg.Languages,
		"baseDirFs":     ctx.BaseDir,
		"bridgeVersion": Version,
		"bridgeKeyId":   ctx.KeyID,
		"databaseName":  ctx.Cfg.DBName,
		"cartDbPrefix":  ctx.Cfg.TblPrefix,
		"cartId":        ctx.Cfg.CartID,
		"cartVars":      ctx.Cfg.CartVars,
		"memoryLimit":   limit,
		"zlibSupported": true,
		"time_zone":     time.Now().Format("-07:00"),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return ctx.Env.Encode(body)
}

func actionBaseDirFs(ctx *Context) (string, error) {
	return ctx.BaseDir, nil
}
