// Package bridge dispatches authenticated connector requests to their action
// handlers.
package bridge

import (
	"os"
	"path/filepath"
	"strings"

	"bridgeconnector/internal/auth"
	"bridgeconnector/internal/cart"
	"bridgeconnector/internal/commerce/woocommerce"
	"bridgeconnector/internal/config"
	"bridgeconnector/internal/crypto"
	"bridgeconnector/internal/database"
	"bridgeconnector/internal/logger"

	"github.com/goccy/go-json"
)

// Version is reported by health checks and config dumps.
const Version = "167"

const (
	errActionMissing   = "ACTION_DOES_NOT_EXIST"
	errDirNotWritable  = "ERROR_BRIDGE_DIR_IS_NOT_WRITABLE"
	errSelfNotWritable = "ERROR_BRIDGE_IS_NOT_WRITABLE"
	installedBanner    = "BRIDGE INSTALLED. Version: " + Version
	healthOK           = "BRIDGE_OK"
)

// Context carries everything one request's handlers need. A fresh Context is
// built per request; nothing in it is shared across requests except the
// store and registries, which are safe for concurrent use.
type Context struct {
	Action   string
	Params   map[string]string
	Cfg      *cart.Adapter
	Link     *database.Link
	Env      *crypto.Envelope
	Store    *woocommerce.Store
	Platform *cart.Registry
	Log      *logger.Logger
	BaseDir  string
	KeyID    string

	KeyCheckURL string
	Gateway     woocommerce.GatewayFunc
}

// Action handles one bridge operation and returns the raw response body.
type Action interface {
	Perform(ctx *Context) (string, error)
}

// ActionFunc adapts a function to Action.
type ActionFunc func(ctx *Context) (string, error)

func (f ActionFunc) Perform(ctx *Context) (string, error) { return f(ctx) }

// Bridge owns the action registry and per-request wiring.
type Bridge struct {
	cfg      *config.Config
	env      *crypto.Envelope
	db       *database.Database
	store    *woocommerce.Store
	platform *cart.Registry
	log      *logger.Logger
	gateway  woocommerce.GatewayFunc

	actions map[string]Action
	// actions that never touch the database
	noLink map[string]bool
}

func New(cfg *config.Config, env *crypto.Envelope, db *database.Database,
	store *woocommerce.Store, platform *cart.Registry, log *logger.Logger) *Bridge {

	b := &Bridge{
		cfg:      cfg,
		env:      env,
		db:       db,
		store:    store,
		platform: platform,
		log:      log,
		actions:  map[string]Action{},
		noLink: map[string]bool{
			"savefile":      true,
			"batchsavefile": true,
		},
	}

	b.actions["query"] = ActionFunc(actionQuery)
	b.actions["multiquery"] = ActionFunc(actionMultiquery)
	b.actions["getconfig"] = ActionFunc(actionGetConfig)
	b.actions["savefile"] = ActionFunc(actionSaveFile)
	b.actions["batchsavefile"] = ActionFunc(actionBatchSaveFile)
	b.actions["basedirfs"] = ActionFunc(actionBaseDirFs)
	b.actions["platform_action"] = ActionFunc(actionPlatform)
	b.actions["createrefund"] = ActionFunc(actionCreateRefund)

	return b
}

// SetGateway installs the payment gateway used by refund repayment.
func (b *Bridge) SetGateway(g woocommerce.GatewayFunc) {
	b.gateway = g
}

// Run executes one request and returns the response body. Failures become
// protocol error strings; only transport-level problems surface as errors
// upstream.
func (b *Bridge) Run(action string, params map[string]string) string {
	action = strings.ReplaceAll(action, ".", "")

	switch action {
	case "":
		return installedBanner
	case auth.HealthCheckAction:
		return b.checkBridge()
	case "update":
		// Self-update is not supported, but the legacy preflight errors
		// are kept so callers get a meaningful diagnosis.
		if msg := b.updatePreflight(); msg != "" {
			return msg
		}
		return errActionMissing
	}

	handler, ok := b.actions[action]
	if !ok {
		return errActionMissing
	}

	ctx := &Context{
		Action:      action,
		Params:      params,
		Env:         b.env,
		Store:       b.store,
		Platform:    b.platform,
		Log:         b.log,
		BaseDir:     b.cfg.StoreBaseDir,
		KeyID:       b.cfg.KeyID,
		KeyCheckURL: b.cfg.KeyCheckURL,
		Gateway:     b.gateway,
	}

	if !b.noLink[action] {
		link := b.db.NewLink()
		defer link.Release()
		ctx.Link = link

		adapter := cart.NewAdapter(b.cfg)
		if err := adapter.Detect(link, b.cfg.CartID); err != nil {
			return err.Error()
		}
		ctx.Cfg = adapter
	} else {
		ctx.Cfg = cart.NewAdapter(b.cfg)
	}

	out, err := handler.Perform(ctx)
	if err != nil {
		b.log.Warn("action %s failed: %v", action, err)
		return err.Error()
	}
	return out
}

// checkBridge answers the unauthenticated health probe. With encryption
// active the caller also needs to know which public key the bridge holds.
func (b *Bridge) checkBridge() string {
	if !b.env.Enabled() {
		return healthOK
	}
	body, _ := json.Marshal(map[string]string{
		"message":        healthOK,
		"key_id":         b.env.KeyID(),
		"bridge_version": Version,
	})
	return string(body)
}

func (b *Bridge) updatePreflight() string {
	dir := b.cfg.StoreBaseDir
	if dir == "" {
		dir = "."
	}
	probe := filepath.Join(dir, ".bridge_write_probe")
	f, err := os.OpenFile(probe, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errDirNotWritable
	}
	f.Close()
	os.Remove(probe)

	if self, err := os.Executable(); err == nil {
		if f, err := os.OpenFile(self, os.O_WRONLY, 0); err != nil {
			return errSelfNotWritable
		} else {
			f.Close()
		}
	}
	return ""
}
