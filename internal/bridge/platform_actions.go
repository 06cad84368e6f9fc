package bridge

import (
	"errors"
	"html"
	"strconv"

	"bridgeconnector/internal/cart"
	"bridgeconnector/internal/commerce"
	"bridgeconnector/internal/commerce/woocommerce"

	"github.com/goccy/go-json"
)

var errMissingID = errors.New("ENTITY_ID_IS_REQUIRED")

// decodeParams converts the loosely-typed action params into a concrete
// request struct.
func decodeParams(params map[string]any, dst any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

func paramID(params map[string]any, key string) (int64, error) {
	v, ok := params[key]
	if !ok {
		return 0, errMissingID
	}
	switch n := v.(type) {
	case float64:
		return int64(n), nil
	case string:
		id, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, errMissingID
		}
		return id, nil
	default:
		return 0, errMissingID
	}
}

// RegisterWoocommerceActions binds the store mutations to their platform
// action names.
func RegisterWoocommerceActions(reg *cart.Registry, store *woocommerce.Store) {
	reg.Register("product_add", func(params map[string]any) (any, error) {
		var p commerce.Product
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		id, err := store.ProductAdd(&p)
		if err != nil {
			return nil, err
		}
		return map[string]any{"product_id": id}, nil
	})

	reg.Register("product_add_batch", func(params map[string]any) (any, error) {
		var req struct {
			Products []*commerce.Product `json:"products"`
		}
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return store.ProductAddBatch(req.Products), nil
	})

	reg.Register("product_update", func(params map[string]any) (any, error) {
		var p commerce.Product
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		if err := store.ProductUpdate(&p); err != nil {
			return nil, err
		}
		return map[string]any{"product_id": p.ID}, nil
	})

	reg.Register("product_delete", func(params map[string]any) (any, error) {
		id, err := paramID(params, "id")
		if err != nil {
			return nil, err
		}
		if err := store.ProductDelete(id); err != nil {
			return nil, err
		}
		return map[string]any{"product_id": id}, nil
	})

	reg.Register("product_get", func(params map[string]any) (any, error) {
		id, err := paramID(params, "id")
		if err != nil {
			return nil, err
		}
		return store.ProductGet(id)
	})

	reg.Register("category_add", func(params map[string]any) (any, error) {
		var c commerce.Category
		if err := decodeParams(params, &c); err != nil {
			return nil, err
		}
		id, err := store.CategoryAdd(&c)
		if err != nil {
			return nil, err
		}
		return map[string]any{"category_id": id}, nil
	})

	reg.Register("category_add_batch", func(params map[string]any) (any, error) {
		var req struct {
			Categories []*commerce.Category `json:"categories"`
		}
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return store.CategoryAddBatch(req.Categories), nil
	})

	reg.Register("category_update", func(params map[string]any) (any, error) {
		var c commerce.Category
		if err := decodeParams(params, &c); err != nil {
			return nil, err
		}
		if err := store.CategoryUpdate(&c); err != nil {
			return nil, err
		}
		return map[string]any{"category_id": c.ID}, nil
	})

	reg.Register("category_delete", func(params map[string]any) (any, error) {
		id, err := paramID(params, "id")
		if err != nil {
			return nil, err
		}
		if err := store.CategoryDelete(id); err != nil {
			return nil, err
		}
		return map[string]any{"category_id": id}, nil
	})

	reg.Register("order_update", func(params map[string]any) (any, error) {
		var u commerce.OrderUpdate
		if err := decodeParams(params, &u); err != nil {
			return nil, err
		}
		if err := store.OrderUpdate(&u); err != nil {
			return nil, err
		}
		return map[string]any{"order_id": u.OrderID}, nil
	})

	reg.Register("image_add", func(params map[string]any) (any, error) {
		var req struct {
			ProductID int64          `json:"product_id"`
			Image     commerce.Image `json:"image"`
		}
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		id, err := store.ImageAdd(req.ProductID, &req.Image)
		if err != nil {
			return nil, err
		}
		return map[string]any{"image_id": id}, nil
	})

	reg.Register("order_tracking_set", func(params map[string]any) (any, error) {
		var req struct {
			OrderID int64  `json:"order_id"`
			Carrier string `json:"carrier"`
			Number  string `json:"number"`
		}
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if err := store.SetTrackingNumber(req.OrderID, req.Carrier, req.Number); err != nil {
			return nil, err
		}
		return map[string]any{"order_id": req.OrderID}, nil
	})

	reg.Register("order_tracking_delete", func(params map[string]any) (any, error) {
		id, err := paramID(params, "order_id")
		if err != nil {
			return nil, err
		}
		if err := store.DeleteTrackingNumber(id); err != nil {
			return nil, err
		}
		return map[string]any{"order_id": id}, nil
	})

	reg.Register("product_update_batch", func(params map[string]any) (any, error) {
		var req struct {
			Products []*commerce.Product `json:"products"`
		}
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return store.ProductUpdateBatch(req.Products), nil
	})

	reg.Register("set_order_notes", func(params map[string]any) (any, error) {
		var req struct {
			OrderID int64  `json:"order_id"`
			From    string `json:"from"`
			To      string `json:"to"`
		}
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if err := store.SetOrderNotes(req.OrderID, req.From, req.To); err != nil {
			return nil, err
		}
		return map[string]any{"order_id": req.OrderID}, nil
	})

	reg.Register("get_images_urls", func(params map[string]any) (any, error) {
		var req struct {
			IDs []int64 `json:"ids"`
		}
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		urls, err := store.ImageURLs(req.IDs)
		if err != nil {
			return nil, err
		}
		return map[string]any{"images": urls}, nil
	})

	reg.Register("get_plugins", func(params map[string]any) (any, error) {
		plugins, err := store.Plugins()
		if err != nil {
			return nil, err
		}
		return map[string]any{"plugins": plugins}, nil
	})

	reg.Register("get_translations", func(params map[string]any) (any, error) {
		var req struct {
			Strings map[string]struct {
				ID     string `json:"id"`
				Domain string `json:"domain"`
			} `json:"strings"`
		}
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		// No catalog is loaded, so each string falls back to its
		// escaped source text, like an untranslated gettext lookup.
		out := make(map[string]string, len(req.Strings))
		for key, entry := range req.Strings {
			out[key] = html.EscapeString(entry.ID)
		}
		return out, nil
	})

	reg.Register("send_email_notifications", func(params map[string]any) (any, error) {
		var req struct {
			Notifications []commerce.EmailNotification `json:"notifications"`
		}
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return map[string]any{"sent": store.SendEmailNotifications(req.Notifications)}, nil
	})

	reg.Register("trigger_events", func(params map[string]any) (any, error) {
		var req struct {
			Events []commerce.EntityEvent `json:"events"`
		}
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return map[string]any{"triggered": store.TriggerEvents(req.Events)}, nil
	})

	reg.Register("send_return_emails", func(params map[string]any) (any, error) {
		var req struct {
			OrderID      int64  `json:"order_id"`
			ReturnStatus string `json:"return_status"`
		}
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if err := store.SendReturnEmails(req.OrderID, req.ReturnStatus); err != nil {
			return nil, err
		}
		return map[string]any{"order_id": req.OrderID}, nil
	})

	reg.Register("set_meta_data", func(params map[string]any) (any, error) {
		var req struct {
			PostID int64  `json:"post_id"`
			Key    string `json:"key"`
			Value  string `json:"value"`
		}
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if err := store.SetMetaData(req.PostID, req.Key, req.Value); err != nil {
			return nil, err
		}
		return map[string]any{"post_id": req.PostID}, nil
	})
}
