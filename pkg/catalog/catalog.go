package catalog

import (
	"bookcatalog/pkg/models"
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

var ErrBookNotFound = errors.New("book not found")

// BookInput carries the scalar fields shared by create and edit. Nil pointers
// store NULL.
type BookInput struct {
	Booktitle       string
	Genre           *string
	PublicationYear *int
	Description     *string
}

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// ListBooks returns every book with its authors. Authors are fetched with one
// batched query rather than per book.
func (s *Store) ListBooks(ctx context.Context) ([]models.Book, error) {
	books := make([]models.Book, 0)
	if err := s.db.WithContext(ctx).Preload("Authors").Find(&books).Error; err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

func (s *Store) GetBook(ctx context.Context, id uint) (*models.Book, error) {
	var book models.Book
	if err := s.db.WithContext(ctx).Preload("Authors").First(&book, id).Error; err != nil {
		return nil, bookLookupError(id, err)
	}
	return &book, nil
}

// CreateBook always inserts a fresh Author for authorName, even when one with
// the same name exists, and commits it before inserting the book.
func (s *Store) CreateBook(ctx context.Context, in BookInput, authorName string) (*models.Book, error) {
	db := s.db.WithContext(ctx)

	author := models.Author{AuthorName: authorName}
	if err := db.Create(&author).Error; err != nil {
		return nil, fmt.Errorf("create author: %w", err)
	}

	book := models.Book{
		Booktitle:       in.Booktitle,
		Authors:         []models.Author{author},
		PublicationYear: in.PublicationYear,
		Genre:           in.Genre,
		Description:     in.Description,
	}
	if err := db.Create(&book).Error; err != nil {
		return nil, fmt.Errorf("create book: %w", err)
	}
	return &book, nil
}

// EditBook relinks the book to the authors named in authorList, reusing
// existing authors by exact name, and overwrites its scalar fields. Authors
// that lose their last book are kept.
func (s *Store) EditBook(ctx context.Context, id uint, in BookInput, authorList string) (*models.Book, error) {
	var book models.Book
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&book, id).Error; err != nil {
			return bookLookupError(id, err)
		}

		if err := tx.Model(&book).Association("Authors").Clear(); err != nil {
			return fmt.Errorf("clear authors of book %d: %w", id, err)
		}

		names := ParseAuthorNames(authorList)
		authors := make([]models.Author, 0, len(names))
		for _, name := range names {
			author, err := findOrCreateAuthor(tx, name)
			if err != nil {
				return err
			}
			authors = append(authors, author)
		}
		if len(authors) > 0 {
			if err := tx.Model(&book).Association("Authors").Append(authors); err != nil {
				return fmt.Errorf("link authors to book %d: %w", id, err)
			}
		}

		err := tx.Model(&book).Updates(map[string]interface{}{
			"booktitle":        in.Booktitle,
			"genre":            in.Genre,
			"publication_year": in.PublicationYear,
			"description":      in.Description,
		}).Error
		if err != nil {
			return fmt.Errorf("update book %d: %w", id, err)
		}

		var updated models.Book
		if err := tx.Preload("Authors").First(&updated, id).Error; err != nil {
			return fmt.Errorf("reload book %d: %w", id, err)
		}
		book = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// DeleteBook removes the book and its authorship links. Authors stay.
func (s *Store) DeleteBook(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var book models.Book
		if err := tx.First(&book, id).Error; err != nil {
			return bookLookupError(id, err)
		}
		if err := tx.Model(&book).Association("Authors").Clear(); err != nil {
			return fmt.Errorf("unlink authors of book %d: %w", id, err)
		}
		if err := tx.Delete(&book).Error; err != nil {
			return fmt.Errorf("delete book %d: %w", id, err)
		}
		return nil
	})
}

// ParseAuthorNames splits a comma-separated author list, trimming each name
// and dropping blanks and repeats. Order of first appearance is kept.
func ParseAuthorNames(list string) []string {
	names := make([]string, 0)
	seen := make(map[string]bool)
	for _, part := range strings.Split(list, ",") {
		name := strings.TrimSpace(part)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

func findOrCreateAuthor(tx *gorm.DB, name string) (models.Author, error) {
	var author models.Author
	err := tx.Where("author_name = ?", name).First(&author).Error
	switch {
	case err == nil:
		return author, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		author = models.Author{AuthorName: name}
		if err := tx.Create(&author).Error; err != nil {
			return author, fmt.Errorf("create author %q: %w", name, err)
		}
		return author, nil
	default:
		return author, fmt.Errorf("find author %q: %w", name, err)
	}
}

func bookLookupError(id uint, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: id %d", ErrBookNotFound, id)
	}
	return fmt.Errorf("find book %d: %w", id, err)
}
