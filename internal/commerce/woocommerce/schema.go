package woocommerce

import "time"

// Row types mirror the WordPress tables the store writes to. Table names are
// resolved at runtime from the configured prefix, so none of these declare a
// TableName method.

type postRow struct {
	ID              int64     `gorm:"column:ID;primaryKey"`
	PostAuthor      int64     `gorm:"column:post_author"`
	PostDate        time.Time `gorm:"column:post_date"`
	PostDateGMT     time.Time `gorm:"column:post_date_gmt"`
	PostContent     string    `gorm:"column:post_content"`
	PostTitle       string    `gorm:"column:post_title"`
	PostExcerpt     string    `gorm:"column:post_excerpt"`
	PostStatus      string    `gorm:"column:post_status"`
	CommentStatus   string    `gorm:"column:comment_status"`
	PingStatus      string    `gorm:"column:ping_status"`
	PostName        string    `gorm:"column:post_name"`
	PostModified    time.Time `gorm:"column:post_modified"`
	PostModifiedGMT time.Time `gorm:"column:post_modified_gmt"`
	PostParent      int64     `gorm:"column:post_parent"`
	GUID            string    `gorm:"column:guid"`
	MenuOrder       int       `gorm:"column:menu_order"`
	PostType        string    `gorm:"column:post_type"`
	PostMimeType    string    `gorm:"column:post_mime_type"`
}

type postmetaRow struct {
	MetaID    int64  `gorm:"column:meta_id;primaryKey"`
	PostID    int64  `gorm:"column:post_id"`
	MetaKey   string `gorm:"column:meta_key"`
	MetaValue string `gorm:"column:meta_value"`
}

type termRow struct {
	TermID    int64  `gorm:"column:term_id;primaryKey"`
	Name      string `gorm:"column:name"`
	Slug      string `gorm:"column:slug"`
	TermGroup int64  `gorm:"column:term_group"`
}

type termTaxonomyRow struct {
	TermTaxonomyID int64  `gorm:"column:term_taxonomy_id;primaryKey"`
	TermID         int64  `gorm:"column:term_id"`
	Taxonomy       string `gorm:"column:taxonomy"`
	Description    string `gorm:"column:description"`
	Parent         int64  `gorm:"column:parent"`
	Count          int64  `gorm:"column:count"`
}

type termmetaRow struct {
	MetaID    int64  `gorm:"column:meta_id;primaryKey"`
	TermID    int64  `gorm:"column:term_id"`
	MetaKey   string `gorm:"column:meta_key"`
	MetaValue string `gorm:"column:meta_value"`
}

type commentRow struct {
	CommentID       int64     `gorm:"column:comment_ID;primaryKey"`
	CommentPostID   int64     `gorm:"column:comment_post_ID"`
	CommentAuthor   string    `gorm:"column:comment_author"`
	CommentDate     time.Time `gorm:"column:comment_date"`
	CommentDateGMT  time.Time `gorm:"column:comment_date_gmt"`
	CommentContent  string    `gorm:"column:comment_content"`
	CommentApproved string    `gorm:"column:comment_approved"`
	CommentAgent    string    `gorm:"column:comment_agent"`
	CommentType     string    `gorm:"column:comment_type"`
}

type commentmetaRow struct {
	MetaID    int64  `gorm:"column:meta_id;primaryKey"`
	CommentID int64  `gorm:"column:comment_id"`
	MetaKey   string `gorm:"column:meta_key"`
	MetaValue string `gorm:"column:meta_value"`
}

type translationRow struct {
	TranslationID      int64   `gorm:"column:translation_id;primaryKey"`
	ElementType        string  `gorm:"column:element_type"`
	ElementID          int64   `gorm:"column:element_id"`
	TrID               int64   `gorm:"column:trid"`
	LanguageCode       string  `gorm:"column:language_code"`
	SourceLanguageCode *string `gorm:"column:source_language_code"`
}
