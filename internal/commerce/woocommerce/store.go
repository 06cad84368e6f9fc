// Package woocommerce mutates a WooCommerce store through its WordPress
// tables.
package woocommerce

import (
	"fmt"
	"time"

	"bridgeconnector/internal/commerce"
	"bridgeconnector/internal/logger"

	"github.com/elliotchance/phpserialize"
	gocache "github.com/patrickmn/go-cache"
	"gorm.io/gorm"
)

const (
	cacheTTL     = 5 * time.Minute
	cacheSweep   = 10 * time.Minute
	orderKeyDate = "2006-01-02 15:04:05"
)

// Store executes commerce writes against the WordPress schema.
type Store struct {
	db     *gorm.DB
	prefix string
	cache  *gocache.Cache
	hooks  []commerce.PostWriteHook
	log    *logger.Logger
}

func NewStore(db *gorm.DB, prefix string, log *logger.Logger) *Store {
	return &Store{
		db:     db,
		prefix: prefix,
		cache:  gocache.New(cacheTTL, cacheSweep),
		log:    log,
	}
}

// AddHook registers a post-write hook. Hooks run after the transaction
// commits; their failures are logged, never propagated.
func (s *Store) AddHook(h commerce.PostWriteHook) {
	s.hooks = append(s.hooks, h)
}

func (s *Store) table(name string) string {
	return s.prefix + name
}

func (s *Store) notify(change commerce.Change) {
	for _, h := range s.hooks {
		h.AfterWrite(change)
	}
}

func productCacheKey(id int64) string {
	return fmt.Sprintf("product:%d", id)
}

func (s *Store) invalidateProduct(id int64) {
	s.cache.Delete(productCacheKey(id))
}

// upsertPostMeta updates a key in place or inserts it, following the behavior
// of update_post_meta.
func (s *Store) upsertPostMeta(db *gorm.DB, postID int64, key, value string) error {
	res := db.Exec(
		"UPDATE "+s.table("postmeta")+" SET meta_value = ? WHERE post_id = ? AND meta_key = ?",
		value, postID, key)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	row := postmetaRow{PostID: postID, MetaKey: key, MetaValue: value}
	return db.Table(s.table("postmeta")).Create(&row).Error
}

func (s *Store) getOption(name string) (string, error) {
	var value string
	err := s.db.Table(s.table("options")).
		Select("option_value").
		Where("option_name = ?", name).
		Limit(1).
		Scan(&value).Error
	return value, err
}

func (s *Store) getPostMeta(db *gorm.DB, postID int64, key string) (string, error) {
	var value string
	err := db.Table(s.table("postmeta")).
		Select("meta_value").
		Where("post_id = ? AND meta_key = ?", postID, key).
		Limit(1).
		Scan(&value).Error
	return value, err
}

// SetMetaData writes one post meta entry outside any entity flow.
func (s *Store) SetMetaData(postID int64, key, value string) error {
	if err := s.upsertPostMeta(s.db, postID, key, value); err != nil {
		return err
	}
	s.invalidateProduct(postID)
	return nil
}

// Plugins lists the plugin paths the store has activated.
func (s *Store) Plugins() ([]string, error) {
	serialized, err := s.getOption("active_plugins")
	if err != nil {
		return nil, err
	}
	if serialized == "" {
		return []string{}, nil
	}
	values, err := phpserialize.UnmarshalIndexedArray([]byte(serialized))
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, fmt.Sprint(v))
	}
	return out, nil
}

// clearProductTransients mirrors wc_delete_product_transients: drop the
// store-wide product caches plus everything keyed to the given product.
func (s *Store) clearProductTransients(db *gorm.DB, id int64) {
	db.Exec("DELETE FROM "+s.table("options")+" WHERE option_name IN (?, ?)",
		"_transient_wc_products_onsale", "_transient_wc_featured_products")
	if id > 0 {
		db.Exec("DELETE FROM "+s.table("options")+" WHERE option_name LIKE ?",
			fmt.Sprintf("%%transient%%wc_product%%_%d", id))
		s.invalidateProduct(id)
	}
}
