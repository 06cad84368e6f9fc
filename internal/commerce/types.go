// Package commerce defines the entities and result shapes shared by the
// platform-specific stores.
package commerce

// Image is an entity image reference, already downloaded to disk or inlined.
type Image struct {
	ID       int64  `json:"id,omitempty"`
	Path     string `json:"path,omitempty"`
	URL      string `json:"url,omitempty"`
	Content  string `json:"content,omitempty"`
	Alt      string `json:"alt,omitempty"`
	Position int    `json:"position,omitempty"`
}

// Product is the write model for product create and update calls.
type Product struct {
	ID               int64             `json:"id,omitempty"`
	Name             string            `json:"name"`
	Slug             string            `json:"slug,omitempty"`
	Description      string            `json:"description,omitempty"`
	ShortDescription string            `json:"short_description,omitempty"`
	SKU              string            `json:"sku,omitempty"`
	Price            string            `json:"price,omitempty"`
	SalePrice        string            `json:"sale_price,omitempty"`
	Quantity         *int64            `json:"quantity,omitempty"`
	ManageStock      bool              `json:"manage_stock,omitempty"`
	Status           string            `json:"status,omitempty"`
	Weight           string            `json:"weight,omitempty"`
	CategoryIDs      []int64           `json:"category_ids,omitempty"`
	Images           []Image           `json:"images,omitempty"`
	Meta             map[string]string `json:"meta,omitempty"`
	LangCode         string            `json:"lang_code,omitempty"`
}

// Category is the write model for category create and update calls.
type Category struct {
	ID        int64  `json:"id,omitempty"`
	Name      string `json:"name"`
	Slug      string `json:"slug,omitempty"`
	ParentID  int64  `json:"parent_id,omitempty"`
	SortOrder int    `json:"sort_order,omitempty"`
	Image     *Image `json:"image,omitempty"`
	LangCode  string `json:"lang_code,omitempty"`
}

// OrderUpdate changes order status and appends notes.
type OrderUpdate struct {
	OrderID        int64    `json:"order_id"`
	Status         string   `json:"status,omitempty"`
	Notes          []string `json:"notes,omitempty"`
	NotifyCustomer bool     `json:"notify_customer,omitempty"`
	CompletedDate  string   `json:"completed_date,omitempty"`
}

// Refund describes a payment reversal against an order.
type Refund struct {
	OrderID      int64  `json:"order_id"`
	Amount       string `json:"amount"`
	Reason       string `json:"reason,omitempty"`
	RestockItems bool   `json:"restock_items,omitempty"`
	Repay        bool   `json:"repay,omitempty"`
}

// ItemError is a structured per-item failure.
type ItemError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// BatchItemResult reports the outcome of one entry in a batch call. ID is nil
// when the entry failed before anything was written.
type BatchItemResult struct {
	ID     *int64      `json:"id"`
	Errors []ItemError `json:"errors,omitempty"`
}

// Response is the body of every platform action reply.
//
// ErrorCode 0 means success, 1 a handler failure, 2 an unknown action.
type Response struct {
	ErrorCode int    `json:"error_code"`
	Error     string `json:"error,omitempty"`
	Result    any    `json:"result,omitempty"`
}

// EntityEvent re-announces a change already persisted through raw SQL so
// caches and listeners catch up.
type EntityEvent struct {
	Event      string `json:"event"`
	EntityType string `json:"entity_type"`
	EntityID   int64  `json:"entity_id"`
}

// EmailNotification asks the mail pipeline to deliver one message about an
// order.
type EmailNotification struct {
	Type    string `json:"type"`
	OrderID int64  `json:"order_id"`
}

// EntityKind names a mutated entity class for post-write hooks.
type EntityKind string

const (
	KindProduct  EntityKind = "product"
	KindCategory EntityKind = "category"
	KindOrder    EntityKind = "order"
	KindImage    EntityKind = "image"
)

// Change describes one committed write.
type Change struct {
	Kind EntityKind
	Op   string // "add", "update", "delete"
	ID   int64
}

// PostWriteHook runs after a successful mutation. Hook failures must not fail
// the originating write.
type PostWriteHook interface {
	AfterWrite(change Change)
}

// HookFunc adapts a function to PostWriteHook.
type HookFunc func(change Change)

func (f HookFunc) AfterWrite(change Change) { f(change) }
