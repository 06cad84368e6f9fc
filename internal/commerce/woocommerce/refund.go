package woocommerce

import (
	"errors"
	"fmt"
	"time"

	"bridgeconnector/internal/commerce"

	"gorm.io/gorm"
)

var ErrRefundGateway = errors.New("REFUND_GATEWAY_ERROR")

// GatewayFunc asks the payment gateway to return money for an order. It is
// injected so the store stays independent of any gateway transport.
type GatewayFunc func(orderID int64, amount string) error

// CreateRefund records a shop_order_refund child post. When repay is
// requested the gateway runs after the record is written; a gateway failure
// deletes the refund again so the books stay consistent.
func (s *Store) CreateRefund(r *commerce.Refund, gateway GatewayFunc) (int64, error) {
	if r.OrderID == 0 {
		return 0, ErrOrderNotFound
	}

	now := time.Now()
	refund := postRow{
		PostDate:        now,
		PostDateGMT:     now.UTC(),
		PostTitle:       fmt.Sprintf("Refund &ndash; %s", now.Format(orderKeyDate)),
		PostStatus:      "wc-completed",
		CommentStatus:   "closed",
		PingStatus:      "closed",
		PostModified:    now,
		PostModifiedGMT: now.UTC(),
		PostParent:      r.OrderID,
		PostType:        "shop_order_refund",
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Table(s.table("posts")).
			Where("ID = ? AND post_type = ?", r.OrderID, "shop_order").
			Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return ErrOrderNotFound
		}

		if err := tx.Table(s.table("posts")).Create(&refund).Error; err != nil {
			return err
		}
		if err := s.upsertPostMeta(tx, refund.ID, "_refund_amount", r.Amount); err != nil {
			return err
		}
		if r.Reason != "" {
			if err := s.upsertPostMeta(tx, refund.ID, "_refund_reason", r.Reason); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if r.Repay && gateway != nil {
		if err := gateway(r.OrderID, r.Amount); err != nil {
			s.deleteRefund(refund.ID)
			return 0, fmt.Errorf("%w: %v", ErrRefundGateway, err)
		}
	}

	s.notify(commerce.Change{Kind: commerce.KindOrder, Op: "update", ID: r.OrderID})
	return refund.ID, nil
}

func (s *Store) deleteRefund(id int64) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM "+s.table("postmeta")+" WHERE post_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Exec("DELETE FROM "+s.table("posts")+" WHERE ID = ?", id).Error
	})
	if err != nil {
		s.log.Error("refund cleanup failed for %d: %v", id, err)
	}
}
