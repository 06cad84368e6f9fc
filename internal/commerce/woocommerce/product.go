package woocommerce

import (
	"errors"
	"strconv"
	"time"

	"bridgeconnector/internal/commerce"

	"gorm.io/gorm"
)

var (
	ErrProductNameRequired = errors.New("PRODUCT_NAME_IS_REQUIRED")
	ErrProductNotFound     = errors.New("PRODUCT_NOT_FOUND")
)

// ProductAdd creates a product post with its meta and category links inside
// one transaction. A failure anywhere rolls the whole product back.
func (s *Store) ProductAdd(p *commerce.Product) (int64, error) {
	if p.Name == "" {
		return 0, ErrProductNameRequired
	}

	now := time.Now()
	status := p.Status
	if status == "" {
		status = "publish"
	}
	post := postRow{
		PostDate:        now,
		PostDateGMT:     now.UTC(),
		PostContent:     p.Description,
		PostTitle:       p.Name,
		PostExcerpt:     p.ShortDescription,
		PostStatus:      status,
		CommentStatus:   "open",
		PingStatus:      "closed",
		PostName:        p.Slug,
		PostModified:    now,
		PostModifiedGMT: now.UTC(),
		PostType:        "product",
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Table(s.table("posts")).Create(&post).Error; err != nil {
			return err
		}
		if err := s.writeProductMeta(tx, post.ID, p); err != nil {
			return err
		}
		return s.assignCategories(tx, post.ID, p.CategoryIDs)
	})
	if err != nil {
		return 0, err
	}

	s.clearProductTransients(s.db, post.ID)
	s.notify(commerce.Change{Kind: commerce.KindProduct, Op: "add", ID: post.ID})
	return post.ID, nil
}

// ProductAddBatch creates each product independently. One bad entry does not
// stop the rest.
func (s *Store) ProductAddBatch(products []*commerce.Product) []commerce.BatchItemResult {
	results := make([]commerce.BatchItemResult, 0, len(products))
	for _, p := range products {
		id, err := s.ProductAdd(p)
		if err != nil {
			results = append(results, commerce.BatchItemResult{
				Errors: []commerce.ItemError{{Message: err.Error(), Code: 1}},
			})
			continue
		}
		results = append(results, commerce.BatchItemResult{ID: &id})
	}
	return results
}

// ProductUpdateBatch applies each update independently, with the same
// per-item error isolation as batch creates.
func (s *Store) ProductUpdateBatch(products []*commerce.Product) []commerce.BatchItemResult {
	results := make([]commerce.BatchItemResult, 0, len(products))
	for _, p := range products {
		if err := s.ProductUpdate(p); err != nil {
			results = append(results, commerce.BatchItemResult{
				Errors: []commerce.ItemError{{Message: err.Error(), Code: 1}},
			})
			continue
		}
		id := p.ID
		results = append(results, commerce.BatchItemResult{ID: &id})
	}
	return results
}

// ProductUpdate rewrites the fields present on p and fans the meta changes out
// to the product's translations.
func (s *Store) ProductUpdate(p *commerce.Product) error {
	if p.ID == 0 {
		return ErrProductNotFound
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"post_modified":     time.Now(),
			"post_modified_gmt": time.Now().UTC(),
		}
		if p.Name != "" {
			updates["post_title"] = p.Name
		}
		if p.Slug != "" {
			updates["post_name"] = p.Slug
		}
		if p.Description != "" {
			updates["post_content"] = p.Description
		}
		if p.ShortDescription != "" {
			updates["post_excerpt"] = p.ShortDescription
		}
		if p.Status != "" {
			updates["post_status"] = p.Status
		}

		res := tx.Table(s.table("posts")).
			Where("ID = ? AND post_type = ?", p.ID, "product").
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrProductNotFound
		}

		if err := s.writeProductMeta(tx, p.ID, p); err != nil {
			return err
		}
		if len(p.CategoryIDs) > 0 {
			if err := tx.Exec("DELETE FROM "+s.table("term_relationships")+" WHERE object_id = ?", p.ID).Error; err != nil {
				return err
			}
			if err := s.assignCategories(tx, p.ID, p.CategoryIDs); err != nil {
				return err
			}
		}

		return s.syncProductTranslations(tx, p)
	})
	if err != nil {
		return err
	}

	s.clearProductTransients(s.db, p.ID)
	s.notify(commerce.Change{Kind: commerce.KindProduct, Op: "update", ID: p.ID})
	return nil
}

// ProductDelete removes the product, its variations and every dependent row.
func (s *Store) ProductDelete(id int64) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var variationIDs []int64
		if err := tx.Table(s.table("posts")).
			Select("ID").
			Where("post_parent = ? AND post_type = ?", id, "product_variation").
			Scan(&variationIDs).Error; err != nil {
			return err
		}

		ids := append(variationIDs, id)
		if err := tx.Exec("DELETE FROM "+s.table("postmeta")+" WHERE post_id IN ?", ids).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM "+s.table("term_relationships")+" WHERE object_id IN ?", ids).Error; err != nil {
			return err
		}

		res := tx.Exec("DELETE FROM "+s.table("posts")+" WHERE ID IN ? AND post_type IN (?, ?)",
			ids, "product", "product_variation")
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrProductNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.clearProductTransients(s.db, id)
	s.notify(commerce.Change{Kind: commerce.KindProduct, Op: "delete", ID: id})
	return nil
}

// ProductGet reads the product title, status and meta, cached per id.
func (s *Store) ProductGet(id int64) (map[string]any, error) {
	if v, ok := s.cache.Get(productCacheKey(id)); ok {
		return v.(map[string]any), nil
	}

	var post postRow
	err := s.db.Table(s.table("posts")).
		Where("ID = ? AND post_type = ?", id, "product").
		Take(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}

	var metas []postmetaRow
	if err := s.db.Table(s.table("postmeta")).
		Where("post_id = ?", id).
		Find(&metas).Error; err != nil {
		return nil, err
	}

	meta := make(map[string]string, len(metas))
	for _, m := range metas {
		meta[m.MetaKey] = m.MetaValue
	}
	out := map[string]any{
		"id":     post.ID,
		"name":   post.PostTitle,
		"slug":   post.PostName,
		"status": post.PostStatus,
		"meta":   meta,
	}

	s.cache.SetDefault(productCacheKey(id), out)
	return out, nil
}

func (s *Store) writeProductMeta(tx *gorm.DB, postID int64, p *commerce.Product) error {
	metas := map[string]string{}
	if p.SKU != "" {
		metas["_sku"] = p.SKU
	}
	if p.Price != "" {
		metas["_regular_price"] = p.Price
		metas["_price"] = p.Price
	}
	if p.SalePrice != "" {
		metas["_sale_price"] = p.SalePrice
		metas["_price"] = p.SalePrice
	}
	if p.Weight != "" {
		metas["_weight"] = p.Weight
	}
	if p.Quantity != nil {
		metas["_stock"] = strconv.FormatInt(*p.Quantity, 10)
		if *p.Quantity > 0 {
			metas["_stock_status"] = "instock"
		} else {
			metas["_stock_status"] = "outofstock"
		}
	}
	if p.ManageStock {
		metas["_manage_stock"] = "yes"
	}
	for k, v := range p.Meta {
		metas[k] = v
	}

	for k, v := range metas {
		if err := s.upsertPostMeta(tx, postID, k, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) assignCategories(tx *gorm.DB, postID int64, categoryIDs []int64) error {
	for _, termID := range categoryIDs {
		var ttID int64
		if err := tx.Table(s.table("term_taxonomy")).
			Select("term_taxonomy_id").
			Where("term_id = ? AND taxonomy = ?", termID, "product_cat").
			Limit(1).
			Scan(&ttID).Error; err != nil {
			return err
		}
		if ttID == 0 {
			continue
		}
		if err := tx.Exec(
			"INSERT INTO "+s.table("term_relationships")+" (object_id, term_taxonomy_id, term_order) VALUES (?, ?, 0)",
			postID, ttID).Error; err != nil {
			return err
		}
		if err := tx.Exec(
			"UPDATE "+s.table("term_taxonomy")+" SET count = count + 1 WHERE term_taxonomy_id = ?",
			ttID).Error; err != nil {
			return err
		}
	}
	return nil
}
