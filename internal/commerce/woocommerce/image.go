package woocommerce

import (
	"mime"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"bridgeconnector/internal/commerce"

	"gorm.io/gorm"
)

// ImageAdd registers an already-saved file as a media attachment and links it
// to the parent product. Position 0 becomes the main product image, anything
// else joins the gallery.
func (s *Store) ImageAdd(parentID int64, img *commerce.Image) (int64, error) {
	now := time.Now()
	mimeType := mime.TypeByExtension(filepath.Ext(img.Path))
	attachment := postRow{
		PostDate:        now,
		PostDateGMT:     now.UTC(),
		PostTitle:       filepath.Base(img.Path),
		PostStatus:      "inherit",
		CommentStatus:   "open",
		PingStatus:      "closed",
		PostModified:    now,
		PostModifiedGMT: now.UTC(),
		PostParent:      parentID,
		GUID:            img.URL,
		PostType:        "attachment",
		PostMimeType:    mimeType,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Table(s.table("posts")).Create(&attachment).Error; err != nil {
			return err
		}
		if err := s.upsertPostMeta(tx, attachment.ID, "_wp_attached_file", img.Path); err != nil {
			return err
		}
		if img.Alt != "" {
			if err := s.upsertPostMeta(tx, attachment.ID, "_wp_attachment_image_alt", img.Alt); err != nil {
				return err
			}
		}
		if parentID == 0 {
			return nil
		}

		attachmentID := strconv.FormatInt(attachment.ID, 10)
		if img.Position == 0 {
			return s.upsertPostMeta(tx, parentID, "_thumbnail_id", attachmentID)
		}

		gallery, err := s.getPostMeta(tx, parentID, "_product_image_gallery")
		if err != nil {
			return err
		}
		if gallery != "" {
			gallery += "," + attachmentID
		} else {
			gallery = attachmentID
		}
		return s.upsertPostMeta(tx, parentID, "_product_image_gallery", gallery)
	})
	if err != nil {
		return 0, err
	}

	if parentID != 0 {
		s.clearProductTransients(s.db, parentID)
	}
	s.notify(commerce.Change{Kind: commerce.KindImage, Op: "add", ID: attachment.ID})
	return attachment.ID, nil
}

// ImageURLs resolves attachment ids to their public upload URLs. Unknown ids
// map to an empty string.
func (s *Store) ImageURLs(ids []int64) (map[int64]string, error) {
	siteURL, err := s.getOption("siteurl")
	if err != nil {
		return nil, err
	}
	siteURL = strings.TrimRight(siteURL, "/")

	urls := make(map[int64]string, len(ids))
	for _, id := range ids {
		file, err := s.getPostMeta(s.db, id, "_wp_attached_file")
		if err != nil {
			return nil, err
		}
		if file == "" {
			urls[id] = ""
			continue
		}
		urls[id] = siteURL + "/wp-content/uploads/" + file
	}
	return urls, nil
}
