package woocommerce

import (
	"errors"
	"strconv"
	"strings"

	"bridgeconnector/internal/commerce"

	"gorm.io/gorm"
)

var (
	ErrCategoryNameRequired = errors.New("CATEGORY_NAME_IS_REQUIRED")
	ErrCategoryNotFound     = errors.New("CATEGORY_NOT_FOUND")
)

func itoa(n int) string {
	return strconv.Itoa(n)
}

func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.Join(strings.Fields(slug), "-")
	return slug
}

// CategoryAdd creates a product_cat term with taxonomy row, sort order and
// optional image.
func (s *Store) CategoryAdd(c *commerce.Category) (int64, error) {
	if c.Name == "" {
		return 0, ErrCategoryNameRequired
	}

	slug := c.Slug
	if slug == "" {
		slug = slugify(c.Name)
	}
	term := termRow{Name: c.Name, Slug: slug}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Table(s.table("terms")).Create(&term).Error; err != nil {
			return err
		}
		tt := termTaxonomyRow{
			TermID:   term.TermID,
			Taxonomy: "product_cat",
			Parent:   c.ParentID,
		}
		if err := tx.Table(s.table("term_taxonomy")).Create(&tt).Error; err != nil {
			return err
		}
		if err := s.upsertTermMeta(tx, term.TermID, "order", itoa(c.SortOrder)); err != nil {
			return err
		}
		if c.Image != nil && c.Image.ID != 0 {
			return s.upsertTermMeta(tx, term.TermID, "thumbnail_id", strconv.FormatInt(c.Image.ID, 10))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.notify(commerce.Change{Kind: commerce.KindCategory, Op: "add", ID: term.TermID})
	return term.TermID, nil
}

// CategoryAddBatch creates each category independently, reporting per-item
// outcomes.
func (s *Store) CategoryAddBatch(categories []*commerce.Category) []commerce.BatchItemResult {
	results := make([]commerce.BatchItemResult, 0, len(categories))
	for _, c := range categories {
		id, err := s.CategoryAdd(c)
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

// CategoryUpdate rewrites the fields present on c.
func (s *Store) CategoryUpdate(c *commerce.Category) error {
	if c.ID == 0 {
		return ErrCategoryNotFound
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{}
		if c.Name != "" {
			updates["name"] = c.Name
		}
		if c.Slug != "" {
			updates["slug"] = c.Slug
		}
		if len(updates) > 0 {
			res := tx.Table(s.table("terms")).Where("term_id = ?", c.ID).Updates(updates)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrCategoryNotFound
			}
		}
		if c.ParentID != 0 {
			if err := tx.Table(s.table("term_taxonomy")).
				Where("term_id = ? AND taxonomy = ?", c.ID, "product_cat").
				Update("parent", c.ParentID).Error; err != nil {
				return err
			}
		}
		if err := s.upsertTermMeta(tx, c.ID, "order", itoa(c.SortOrder)); err != nil {
			return err
		}
		if c.Image != nil && c.Image.ID != 0 {
			if err := s.upsertTermMeta(tx, c.ID, "thumbnail_id", strconv.FormatInt(c.Image.ID, 10)); err != nil {
				return err
			}
		}
		return s.syncCategoryTranslations(tx, c)
	})
	if err != nil {
		return err
	}

	s.notify(commerce.Change{Kind: commerce.KindCategory, Op: "update", ID: c.ID})
	return nil
}

// CategoryDelete removes the term with every dependent row.
func (s *Store) CategoryDelete(id int64) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(
			"DELETE FROM "+s.table("term_relationships")+" WHERE term_taxonomy_id IN "+
				"(SELECT term_taxonomy_id FROM "+s.table("term_taxonomy")+" WHERE term_id = ?)", id).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM "+s.table("term_taxonomy")+" WHERE term_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM "+s.table("termmeta")+" WHERE term_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Exec("DELETE FROM "+s.table("terms")+" WHERE term_id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrCategoryNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.notify(commerce.Change{Kind: commerce.KindCategory, Op: "delete", ID: id})
	return nil
}

func (s *Store) upsertTermMeta(db *gorm.DB, termID int64, key, value string) error {
	res := db.Exec(
		"UPDATE "+s.table("termmeta")+" SET meta_value = ? WHERE term_id = ? AND meta_key = ?",
		value, termID, key)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	row := termmetaRow{TermID: termID, MetaKey: key, MetaValue: value}
	return db.Table(s.table("termmeta")).Create(&row).Error
}
