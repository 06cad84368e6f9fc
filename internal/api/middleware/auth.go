package middleware

import (
	"net/http"

	"bridgeconnector/internal/auth"
	"bridgeconnector/internal/logger"
	"bridgeconnector/internal/storekey"

	"github.com/gin-gonic/gin"
)

const paramsKey = "bridge_params"

// CollectParams flattens query and form values into a single string map and
// stashes it on the context for the auth check and the handler.
func CollectParams() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := c.Request.ParseForm(); err != nil {
			c.String(http.StatusBadRequest, "ERROR: malformed request")
			c.Abort()
			return
		}

		params := make(map[string]string, len(c.Request.Form))
		for name, values := range c.Request.Form {
			if len(values) > 0 {
				params[name] = values[0]
			}
		}
		c.Set(paramsKey, params)
		c.Next()
	}
}

// Params returns the flattened request parameters.
func Params(c *gin.Context) map[string]string {
	if v, ok := c.Get(paramsKey); ok {
		return v.(map[string]string)
	}
	return map[string]string{}
}

// Signature verifies the request HMAC against the current store key. The key
// is re-read per request so rotation takes effect immediately.
func Signature(keys *storekey.Manager, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		params := Params(c)
		action := params["action"]

		key := ""
		if keys.Installed() {
			k, err := keys.Load()
			if err != nil {
				log.Error("store key load failed: %v", err)
				c.String(http.StatusOK, auth.ErrNoStoreKey.Error())
				c.Abort()
				return
			}
			key = k
		}

		a := auth.New(key, keys.Installed())
		if err := a.Verify(action, params); err != nil {
			c.String(http.StatusOK, err.Error())
			c.Abort()
			return
		}
		c.Next()
	}
}
