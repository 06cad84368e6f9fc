package woocommerce

import (
	"bridgeconnector/internal/commerce"

	"gorm.io/gorm"
)

// TriggerEvents re-fires the post-write hooks for entities that were changed
// through raw SQL, so caches and downstream consumers catch up. Returns the
// number of events announced.
func (s *Store) TriggerEvents(events []commerce.EntityEvent) int {
	fired := 0
	for _, ev := range events {
		kind := commerce.EntityKind(ev.EntityType)
		if ev.EntityType == "variant" {
			kind = commerce.KindProduct
		}
		if kind == commerce.KindProduct {
			s.invalidateProduct(ev.EntityID)
		}

		op := ev.Event
		if op == "" {
			op = "update"
		}
		s.notify(commerce.Change{Kind: kind, Op: op, ID: ev.EntityID})
		fired++
	}
	return fired
}

// SendEmailNotifications hands mail requests to the hook chain. The bridge
// carries no mailer of its own; a consumer on the event bus delivers.
func (s *Store) SendEmailNotifications(notifications []commerce.EmailNotification) int {
	sent := 0
	for _, n := range notifications {
		op := "email"
		if n.Type != "" {
			op = "email." + n.Type
		}
		s.notify(commerce.Change{Kind: commerce.KindOrder, Op: op, ID: n.OrderID})
		sent++
	}
	return sent
}

// SendReturnEmails reacts to a return-merchandise status change: the order
// history gets a note and the mail event goes out on the hook chain.
func (s *Store) SendReturnEmails(orderID int64, returnStatus string) error {
	if orderID == 0 {
		return ErrOrderNotFound
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		return s.addOrderNote(tx, orderID, "Return request "+returnStatus+".", false)
	})
	if err != nil {
		return err
	}

	s.notify(commerce.Change{Kind: commerce.KindOrder, Op: "email.return_" + returnStatus, ID: orderID})
	return nil
}
