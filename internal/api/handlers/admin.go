package handlers

import (
	"net/http"

	"bridgeconnector/internal/bridge"
	"bridgeconnector/internal/logger"
	"bridgeconnector/internal/storekey"

	"github.com/gin-gonic/gin"
)

// AdminHandler manages the bridge lifecycle: install, key rotation and
// uninstall. It is reachable only through the token-guarded admin group.
type AdminHandler struct {
	keys   *storekey.Manager
	logger *logger.Logger
}

func NewAdminHandler(keys *storekey.Manager, logger *logger.Logger) *AdminHandler {
	return &AdminHandler{keys: keys, logger: logger}
}

// Install marks the bridge installed and returns the store key the connector
// must sign with.
func (h *AdminHandler) Install(c *gin.Context) {
	key, err := h.keys.Load()
	if err != nil {
		h.logger.Error("install failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := h.keys.SetInstalled(true); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"store_key":      key,
		"bridge_version": bridge.Version,
	})
}

// Uninstall disables the bridge. The store key is kept so a reinstall picks
// it up again.
func (h *AdminHandler) Uninstall(c *gin.Context) {
	if err := h.keys.SetInstalled(false); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "uninstalled"})
}

// Status reports whether the bridge is installed.
func (h *AdminHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"installed":      h.keys.Installed(),
		"bridge_version": bridge.Version,
	})
}

// RotateKey replaces the store key. Connectors must be reconfigured with the
// returned value.
func (h *AdminHandler) RotateKey(c *gin.Context) {
	key, err := h.keys.Rotate()
	if err != nil {
		h.logger.Error("key rotation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"store_key": key})
}
