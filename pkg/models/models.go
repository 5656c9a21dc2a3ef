package models

import (
	"time"
)

type Author struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	AuthorName string `gorm:"size:200;not null" json:"authorName"`
	Books      []Book `gorm:"many2many:book_author" json:"books,omitempty"`
}

type Book struct {
	ID              uint     `gorm:"primaryKey" json:"id"`
	Booktitle       string   `gorm:"size:200;not null" json:"booktitle"`
	Authors         []Author `gorm:"many2many:book_author;constraint:OnDelete:CASCADE" json:"authors"`
	PublicationYear *int     `json:"publicationYear"`
	Genre           *string  `gorm:"size:100" json:"genre"`
	Description     *string  `gorm:"type:text" json:"description"`
	// Stamped by GORM from the application clock on insert; updates never touch it.
	CreatedAt time.Time `gorm:"autoCreateTime;<-:create" json:"createdAt"`
}

// BookAuthor is the join row between Book and Author. GORM manages it through
// the many2many tags; this type only lets the links be queried directly.
type BookAuthor struct {
	BookID   uint `gorm:"primaryKey"`
	AuthorID uint `gorm:"primaryKey"`
}

func (BookAuthor) TableName() string {
	return "book_author"
}

// All is the migration set for the catalog database.
func All() []interface{} {
	return []interface{}{&Author{}, &Book{}}
}
