package woocommerce

import (
	"bridgeconnector/internal/commerce"

	"gorm.io/gorm"
)

// translationPeers lists the other language variants of an element, using the
// WPML translation table layout (rows sharing a trid).
func (s *Store) translationPeers(db *gorm.DB, elementType string, elementID int64) ([]int64, error) {
	var self translationRow
	err := db.Table(s.table("icl_translations")).
		Where("element_type = ? AND element_id = ?", elementType, elementID).
		Limit(1).
		Scan(&self).Error
	if err != nil || self.TrID == 0 {
		return nil, err
	}

	var rows []translationRow
	err = db.Table(s.table("icl_translations")).
		Where("element_type = ? AND trid = ? AND element_id <> ?", elementType, self.TrID, elementID).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	peers := make([]int64, 0, len(rows))
	for _, row := range rows {
		peers = append(peers, row.ElementID)
	}
	return peers, nil
}

// syncProductTranslations copies the language-neutral fields of an updated
// product to its translations. Title, slug and descriptions stay per-language
// and are never touched.
func (s *Store) syncProductTranslations(tx *gorm.DB, p *commerce.Product) error {
	peers, err := s.translationPeers(tx, "post_product", p.ID)
	if err != nil || len(peers) == 0 {
		return err
	}

	shared := *p
	shared.Name = ""
	shared.Slug = ""
	shared.Description = ""
	shared.ShortDescription = ""

	for _, peer := range peers {
		shared.ID = peer
		if err := s.writeProductMeta(tx, peer, &shared); err != nil {
			return err
		}
		if p.Status != "" {
			if err := tx.Table(s.table("posts")).
				Where("ID = ?", peer).
				Update("post_status", p.Status).Error; err != nil {
				return err
			}
		}
		s.invalidateProduct(peer)
	}
	return nil
}

// syncCategoryTranslations propagates the sort order to category translations.
func (s *Store) syncCategoryTranslations(tx *gorm.DB, c *commerce.Category) error {
	peers, err := s.translationPeers(tx, "tax_product_cat", c.ID)
	if err != nil || len(peers) == 0 {
		return err
	}
	for _, peer := range peers {
		if err := s.upsertTermMeta(tx, peer, "order", itoa(c.SortOrder)); err != nil {
			return err
		}
	}
	return nil
}
