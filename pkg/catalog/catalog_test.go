package catalog

import (
	"bookcatalog/pkg/database"
	"bookcatalog/pkg/models"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:?_foreign_keys=on"), database.GormConfig())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

func year(y int) *int {
	return &y
}

func text(s string) *string {
	return &s
}

func newBook(title string, y int) BookInput {
	return BookInput{
		Booktitle:       title,
		Genre:           text("Fiction"),
		PublicationYear: year(y),
		Description:     text("A test book"),
	}
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestCreateBook(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	book, err := store.CreateBook(ctx, newBook("Dune", 1965), "Frank Herbert")
	require.NoError(t, err)

	assert.NotZero(t, book.ID)
	assert.False(t, book.CreatedAt.IsZero())

	stored, err := store.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune", stored.Booktitle)
	assert.Equal(t, 1965, *stored.PublicationYear)
	require.Len(t, stored.Authors, 1)
	assert.Equal(t, "Frank Herbert", stored.Authors[0].AuthorName)
}

func TestCreateBookDoesNotReuseAuthors(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	first, err := store.CreateBook(ctx, newBook("One", 2000), "A")
	require.NoError(t, err)
	second, err := store.CreateBook(ctx, newBook("Two", 2001), "A")
	require.NoError(t, err)

	var authors []models.Author
	require.NoError(t, db.Where("author_name = ?", "A").Find(&authors).Error)
	assert.Len(t, authors, 2)
	assert.NotEqual(t, first.Authors[0].ID, second.Authors[0].ID)
}

func TestCreatedAtFollowsInsertionOrder(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	for _, title := range []string{"a", "b", "c", "d"} {
		_, err := store.CreateBook(ctx, newBook(title, 2000), "Author "+title)
		require.NoError(t, err)
	}

	var books []models.Book
	require.NoError(t, db.Order("id").Find(&books).Error)
	require.Len(t, books, 4)
	for i := 1; i < len(books); i++ {
		assert.False(t, books[i].CreatedAt.Before(books[i-1].CreatedAt),
			"book %d created before book %d", books[i].ID, books[i-1].ID)
	}
}

func TestListBooksLoadsAuthors(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	books, err := store.ListBooks(ctx)
	require.NoError(t, err)
	assert.NotNil(t, books)
	assert.Empty(t, books)

	_, err = store.CreateBook(ctx, newBook("Emma", 1815), "Jane Austen")
	require.NoError(t, err)
	_, err = store.CreateBook(ctx, newBook("Ulysses", 1922), "James Joyce")
	require.NoError(t, err)

	books, err = store.ListBooks(ctx)
	require.NoError(t, err)
	require.Len(t, books, 2)
	for _, b := range books {
		assert.Len(t, b.Authors, 1)
	}
}

func TestEditBookRelinksAuthors(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	existing, err := store.CreateBook(ctx, newBook("Other", 1990), "Jane Doe")
	require.NoError(t, err)
	book, err := store.CreateBook(ctx, newBook("Draft", 1999), "Original Author")
	require.NoError(t, err)
	createdAt := book.CreatedAt

	edited, err := store.EditBook(ctx, book.ID, BookInput{
		Booktitle:       "Final",
		Genre:           text("Essay"),
		PublicationYear: year(2004),
		Description:     text("Revised"),
	}, " Jane Doe , John Smith, Jane Doe,, ")
	require.NoError(t, err)

	assert.Equal(t, "Final", edited.Booktitle)
	assert.Equal(t, "Essay", *edited.Genre)
	assert.Equal(t, 2004, *edited.PublicationYear)
	assert.Equal(t, "Revised", *edited.Description)
	assert.True(t, createdAt.Equal(edited.CreatedAt))

	require.Len(t, edited.Authors, 2)
	names := []string{edited.Authors[0].AuthorName, edited.Authors[1].AuthorName}
	assert.ElementsMatch(t, []string{"Jane Doe", "John Smith"}, names)

	var links []models.BookAuthor
	require.NoError(t, db.Where("book_id = ?", book.ID).Find(&links).Error)
	assert.Len(t, links, 2)

	// Jane Doe is reused, John Smith is new, Original Author is orphaned but kept.
	var jane []models.Author
	require.NoError(t, db.Where("author_name = ?", "Jane Doe").Find(&jane).Error)
	require.Len(t, jane, 1)
	assert.Equal(t, existing.Authors[0].ID, jane[0].ID)
	assert.Equal(t, int64(3), countRows(t, db, &models.Author{}))
}

func TestEditBookClearsAuthorsAndYear(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	book, err := store.CreateBook(ctx, newBook("Draft", 1999), "Someone")
	require.NoError(t, err)

	edited, err := store.EditBook(ctx, book.ID, BookInput{Booktitle: "Draft"}, " , ")
	require.NoError(t, err)
	assert.Empty(t, edited.Authors)
	assert.Nil(t, edited.PublicationYear)
	assert.Nil(t, edited.Genre)
	assert.Nil(t, edited.Description)

	stored, err := store.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Genre)
	assert.Nil(t, stored.Description)
	assert.Equal(t, int64(0), countRows(t, db, &models.BookAuthor{}))
}

func TestEditBookNotFound(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)

	_, err := store.EditBook(context.Background(), 42, newBook("x", 2000), "A")
	assert.ErrorIs(t, err, ErrBookNotFound)
	assert.Equal(t, int64(0), countRows(t, db, &models.Author{}))
}

func TestDeleteBookKeepsAuthors(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	book, err := store.CreateBook(ctx, newBook("Gone", 2010), "Jane Doe")
	require.NoError(t, err)
	_, err = store.EditBook(ctx, book.ID, newBook("Gone", 2010), "Jane Doe, John Smith")
	require.NoError(t, err)

	require.NoError(t, store.DeleteBook(ctx, book.ID))

	_, err = store.GetBook(ctx, book.ID)
	assert.ErrorIs(t, err, ErrBookNotFound)
	assert.Equal(t, int64(0), countRows(t, db, &models.BookAuthor{}))

	var authors []models.Author
	require.NoError(t, db.Order("id").Find(&authors).Error)
	require.Len(t, authors, 2)
	assert.Equal(t, "Jane Doe", authors[0].AuthorName)
	assert.Equal(t, "John Smith", authors[1].AuthorName)
}

func TestDeleteBookNotFound(t *testing.T) {
	store := NewStore(setupTestDB(t))
	err := store.DeleteBook(context.Background(), 7)
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestParseAuthorNames(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"Jane Doe, John Smith", []string{"Jane Doe", "John Smith"}},
		{"  Jane Doe  ", []string{"Jane Doe"}},
		{"A, B, A", []string{"A", "B"}},
		{",, ,", []string{}},
		{"", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAuthorNames(tt.input))
		})
	}
}
