package main

import (
	"bookcatalog/pkg/catalog"
	"bookcatalog/pkg/database"
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	db    *gorm.DB
	store *catalog.Store
)

type createBookForm struct {
	Booktitle       string `form:"booktitle" binding:"required,max=200"`
	AuthorName      string `form:"authorName" binding:"required,max=200"`
	Genre           string `form:"genre" binding:"required,max=100"`
	PublicationYear string `form:"publicationYear" binding:"required"`
	Description     string `form:"description" binding:"required"`
}

type editBookForm struct {
	Booktitle       string `form:"booktitle" binding:"required,max=200"`
	Author          string `form:"author"`
	Genre           string `form:"genre" binding:"max=100"`
	PublicationYear string `form:"publicationYear"`
	Description     string `form:"description"`
}

// Edit overwrites every one of these, so each must be sent even when blank.
var editBookFields = []string{"author", "genre", "publicationYear", "description"}

func main() {
	log.Println("Starting catalog service...")

	db = database.InitCatalogDB()
	store = catalog.NewStore(db)

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}
	if err := sqlDB.Ping(); err != nil {
		log.Fatalf("Database ping failed: %v", err)
	}
	log.Println("Database ping successful")

	if getEnv("CATALOG_SEED", "false") == "true" {
		seedTestData()
	}

	port := getEnv("PORT", "8080")
	server := setupRouter(gin.Default())

	log.Printf("Catalog service starting on :%s", port)
	if err := server.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func setupRouter(server *gin.Engine) *gin.Engine {
	server.Use(requestID())
	server.GET("/", listBooks)
	server.POST("/create/", createBook)
	server.GET("/edit/:id", getBook)
	server.POST("/edit/:id", editBook)
	server.GET("/delete/:id", redirectToList)
	server.POST("/delete/:id", deleteBook)
	server.POST("/books/:id/delete", deleteBook)
	server.GET("/report", getReport)
	server.GET("/manage/health", healthCheck)
	return server
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("requestID", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func listBooks(c *gin.Context) {
	books, err := store.ListBooks(c.Request.Context())
	if err != nil {
		internalError(c, "failed to list books", err)
		return
	}
	c.JSON(http.StatusOK, books)
}

func createBook(c *gin.Context) {
	var form createBookForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book form", "details": err.Error()})
		return
	}
	year, err := strconv.Atoi(form.PublicationYear)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "publicationYear must be an integer"})
		return
	}

	input := catalog.BookInput{
		Booktitle:       form.Booktitle,
		Genre:           &form.Genre,
		PublicationYear: &year,
		Description:     &form.Description,
	}
	if _, err := store.CreateBook(c.Request.Context(), input, form.AuthorName); err != nil {
		internalError(c, "failed to create book", err)
		return
	}
	redirectToList(c)
}

func getBook(c *gin.Context) {
	id, ok := bookID(c)
	if !ok {
		return
	}
	book, err := store.GetBook(c.Request.Context(), id)
	if err != nil {
		bookError(c, "failed to load book", err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func editBook(c *gin.Context) {
	id, ok := bookID(c)
	if !ok {
		return
	}
	var form editBookForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book form", "details": err.Error()})
		return
	}
	for _, field := range editBookFields {
		if _, ok := c.GetPostForm(field); !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book form", "details": field + " is required"})
			return
		}
	}

	// An empty year clears it; anything else has to be a number.
	var year *int
	if form.PublicationYear != "" {
		y, err := strconv.Atoi(form.PublicationYear)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "publicationYear must be an integer"})
			return
		}
		year = &y
	}

	input := catalog.BookInput{
		Booktitle:       form.Booktitle,
		Genre:           &form.Genre,
		PublicationYear: year,
		Description:     &form.Description,
	}
	if _, err := store.EditBook(c.Request.Context(), id, input, form.Author); err != nil {
		bookError(c, "failed to edit book", err)
		return
	}
	redirectToList(c)
}

func deleteBook(c *gin.Context) {
	id, ok := bookID(c)
	if !ok {
		return
	}
	if err := store.DeleteBook(c.Request.Context(), id); err != nil {
		bookError(c, "failed to delete book", err)
		return
	}
	redirectToList(c)
}

func getReport(c *gin.Context) {
	report, err := store.Report(c.Request.Context())
	if err != nil {
		internalError(c, "failed to build report", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func redirectToList(c *gin.Context) {
	c.Redirect(http.StatusFound, "/")
}

// bookID parses the :id path parameter. Anything that is not a positive
// integer cannot name a book, so it is answered as not found.
func bookID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "book not found"})
		return 0, false
	}
	return uint(id), true
}

func bookError(c *gin.Context, message string, err error) {
	if errors.Is(err, catalog.ErrBookNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "book not found"})
		return
	}
	internalError(c, message, err)
}

func internalError(c *gin.Context, message string, err error) {
	log.Printf("[%s] %s: %v", c.GetString("requestID"), message, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": message})
}

func seedTestData() {
	var count int64
	if err := db.Table("book").Count(&count).Error; err != nil {
		log.Printf("Failed to count books: %v", err)
		return
	}
	if count > 0 {
		log.Println("Catalog already has books, skipping seed")
		return
	}

	seeds := []struct {
		title  string
		author string
		genre  string
		year   int
		desc   string
	}{
		{"The C Programming Language", "Brian Kernighan", "Programming", 1978, "The classic introduction to C."},
		{"The Go Programming Language", "Alan Donovan", "Programming", 2015, "A tour of Go from the ground up."},
		{"Dune", "Frank Herbert", "Science Fiction", 1965, "Politics and sand on Arrakis."},
	}

	for _, s := range seeds {
		year, genre, desc := s.year, s.genre, s.desc
		input := catalog.BookInput{
			Booktitle:       s.title,
			Genre:           &genre,
			PublicationYear: &year,
			Description:     &desc,
		}
		if _, err := store.CreateBook(context.Background(), input, s.author); err != nil {
			log.Printf("Failed to create seed book %s: %v", s.title, err)
			continue
		}
		log.Printf("Created seed book: %s", s.title)
	}
	log.Println("Catalog test data seeded")
}

func healthCheck(ctx *gin.Context) {
	sqlDB, err := db.DB()
	if err != nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "DOWN",
			"details": "Database connection failed",
			"error":   err.Error(),
		})
		return
	}
	if err := sqlDB.Ping(); err != nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "DOWN",
			"details": "Database ping failed",
			"error":   err.Error(),
		})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"status":  "UP",
		"details": "Catalog database is reachable",
	})
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
