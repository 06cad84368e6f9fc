package woocommerce

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"bridgeconnector/internal/commerce"

	"gorm.io/gorm"
)

var ErrOrderNotFound = errors.New("ORDER_NOT_FOUND")

// OrderUpdate switches order status and appends order notes. Notes meant for
// the customer are flagged so the storefront shows them; the bridge itself
// never sends mail.
func (s *Store) OrderUpdate(u *commerce.OrderUpdate) error {
	if u.OrderID == 0 {
		return ErrOrderNotFound
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if u.Status != "" {
			status := u.Status
			if !strings.HasPrefix(status, "wc-") {
				status = "wc-" + status
			}
			res := tx.Table(s.table("posts")).
				Where("ID = ? AND post_type = ?", u.OrderID, "shop_order").
				Updates(map[string]any{
					"post_status":       status,
					"post_modified":     time.Now(),
					"post_modified_gmt": time.Now().UTC(),
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrOrderNotFound
			}

			if status == "wc-completed" {
				completed := u.CompletedDate
				if completed == "" {
					completed = time.Now().Format(orderKeyDate)
				}
				if err := s.upsertPostMeta(tx, u.OrderID, "_completed_date", completed); err != nil {
					return err
				}
			}
		}

		for _, note := range u.Notes {
			if err := s.addOrderNote(tx, u.OrderID, note, u.NotifyCustomer); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.notify(commerce.Change{Kind: commerce.KindOrder, Op: "update", ID: u.OrderID})
	return nil
}

// SetOrderNotes records a status transition in the order's note history.
func (s *Store) SetOrderNotes(orderID int64, from, to string) error {
	if orderID == 0 {
		return ErrOrderNotFound
	}

	var n int64
	if err := s.db.Table(s.table("posts")).
		Where("ID = ? AND post_type = ?", orderID, "shop_order").
		Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrOrderNotFound
	}

	note := fmt.Sprintf("Order status set to %s.", orderStatusName(to))
	if from != "" {
		note = fmt.Sprintf("Order status changed from %s to %s.", orderStatusName(from), orderStatusName(to))
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		return s.addOrderNote(tx, orderID, note, false)
	})
	if err != nil {
		return err
	}

	s.notify(commerce.Change{Kind: commerce.KindOrder, Op: "update", ID: orderID})
	return nil
}

// orderStatusName renders a wc- status slug the way order notes show it.
func orderStatusName(status string) string {
	s := strings.TrimPrefix(status, "wc-")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// SetTrackingNumber attaches shipment tracking to an order.
func (s *Store) SetTrackingNumber(orderID int64, carrier, number string) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.upsertPostMeta(tx, orderID, "_tracking_number", number); err != nil {
			return err
		}
		if carrier != "" {
			return s.upsertPostMeta(tx, orderID, "_tracking_provider", carrier)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.notify(commerce.Change{Kind: commerce.KindOrder, Op: "update", ID: orderID})
	return nil
}

// DeleteTrackingNumber removes shipment tracking and leaves an order note so
// the change is visible in the order history.
func (s *Store) DeleteTrackingNumber(orderID int64) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(
			"DELETE FROM "+s.table("postmeta")+" WHERE post_id = ? AND meta_key IN (?, ?)",
			orderID, "_tracking_number", "_tracking_provider").Error; err != nil {
			return err
		}
		return s.addOrderNote(tx, orderID, "Tracking number removed.", false)
	})
	if err != nil {
		return err
	}
	s.notify(commerce.Change{Kind: commerce.KindOrder, Op: "update", ID: orderID})
	return nil
}

func (s *Store) addOrderNote(tx *gorm.DB, orderID int64, note string, customerNote bool) error {
	now := time.Now()
	comment := commentRow{
		CommentPostID:   orderID,
		CommentAuthor:   "WooCommerce",
		CommentDate:     now,
		CommentDateGMT:  now.UTC(),
		CommentContent:  note,
		CommentApproved: "1",
		CommentAgent:    "WooCommerce",
		CommentType:     "order_note",
	}
	if err := tx.Table(s.table("comments")).Create(&comment).Error; err != nil {
		return err
	}
	if customerNote {
		meta := commentmetaRow{CommentID: comment.CommentID, MetaKey: "is_customer_note", MetaValue: "1"}
		return tx.Table(s.table("commentmeta")).Create(&meta).Error
	}
	return nil
}
