package catalog

import (
	"bookcatalog/pkg/models"
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// YearCount is one publication year and the number of books carrying it. A nil
// year groups the books with no publication year.
type YearCount struct {
	PublicationYear *int  `json:"publicationYear"`
	BooksCount      int64 `json:"booksCount"`
}

type Report struct {
	TotalBooks         int64        `json:"totalBooks"`
	YearsWithMostBooks []YearCount  `json:"yearsWithMostBooks"`
	FirstBook          *models.Book `json:"firstBook"`
	MostRecentBook     *models.Book `json:"mostRecentBook"`
}

// Report runs the four aggregation queries fresh on every call.
func (s *Store) Report(ctx context.Context) (*Report, error) {
	db := s.db.WithContext(ctx)
	report := &Report{}

	if err := db.Model(&models.Book{}).Count(&report.TotalBooks).Error; err != nil {
		return nil, fmt.Errorf("count books: %w", err)
	}

	years, err := yearsWithMostBooks(db)
	if err != nil {
		return nil, err
	}
	report.YearsWithMostBooks = years

	if report.FirstBook, err = bookByCreatedAt(db, "ASC"); err != nil {
		return nil, fmt.Errorf("first book: %w", err)
	}
	if report.MostRecentBook, err = bookByCreatedAt(db, "DESC"); err != nil {
		return nil, fmt.Errorf("most recent book: %w", err)
	}
	return report, nil
}

// yearsWithMostBooks returns every year whose book count equals the highest
// per-year count, so ties are all reported.
func yearsWithMostBooks(db *gorm.DB) ([]YearCount, error) {
	yearCounts := func() *gorm.DB {
		return db.Model(&models.Book{}).
			Select("publication_year, COUNT(*) AS books_count").
			Group("publication_year")
	}
	maxCount := db.Table("(?) AS year_counts", yearCounts()).Select("MAX(books_count)")

	years := make([]YearCount, 0)
	err := db.Table("(?) AS year_counts", yearCounts()).
		Select("publication_year, books_count").
		Where("books_count = (?)", maxCount).
		Order("publication_year").
		Scan(&years).Error
	if err != nil {
		return nil, fmt.Errorf("years with most books: %w", err)
	}
	return years, nil
}

func bookByCreatedAt(db *gorm.DB, direction string) (*models.Book, error) {
	var book models.Book
	err := db.Order("created_at " + direction).Order("id " + direction).Take(&book).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}
