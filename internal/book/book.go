package book

import (
	"bytes"
	"encoding/json"
	"errors"
)

var (
	// ErrNotFound is returned when no book matches the key.
	ErrNotFound = errors.New("book not found")
	// ErrInvalidInput is returned for a missing or malformed request body.
	ErrInvalidInput = errors.New("invalid input")
	// ErrValidation is returned when a required field fails its check.
	ErrValidation = errors.New("validation failed")
	// ErrConstraintViolation is returned when the store rejects a write on an integrity constraint.
	ErrConstraintViolation = errors.New("constraint violation")
)

const (
	DefaultRating      = 0.0
	DefaultStockStatus = "available"
)

// Book represents a book record. Optional columns are pointers so that
// NULL survives the round trip and serializes as JSON null.
type Book struct {
	ID          int64    `json:"id"`
	Title       *string  `json:"title"`
	Author      *string  `json:"author"`
	Publisher   *string  `json:"publisher"`
	Edition     *string  `json:"edition"`
	Language    *string  `json:"language"`
	Pages       *int     `json:"pages"`
	Genre       *string  `json:"genre"`
	Price       *float64 `json:"price"`
	Rating      *float64 `json:"rating"`
	StockStatus *string  `json:"stock_status"`
}

// Optional is a JSON field that remembers whether it was present in the
// document. Set with a nil Value means the key was sent as null.
type Optional[T any] struct {
	Set   bool
	Value *T
}

// Some returns a present, non-null Optional.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

// Null returns a present Optional carrying JSON null.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

func (o Optional[T]) apply(dst **T) {
	if !o.Set {
		return
	}
	if o.Value == nil {
		*dst = nil
		return
	}
	v := *o.Value
	*dst = &v
}

// Fields is the whitelist of writable book columns. Keys outside it are
// ignored when decoding.
type Fields struct {
	Title       Optional[string]  `json:"title"`
	Author      Optional[string]  `json:"author"`
	Publisher   Optional[string]  `json:"publisher"`
	Edition     Optional[string]  `json:"edition"`
	Language    Optional[string]  `json:"language"`
	Pages       Optional[int]     `json:"pages"`
	Genre       Optional[string]  `json:"genre"`
	Price       Optional[float64] `json:"price"`
	Rating      Optional[float64] `json:"rating"`
	StockStatus Optional[string]  `json:"stock_status"`
}

// ApplyTo copies every present field onto b. Absent fields keep their
// current value; fields sent as null are cleared.
func (f Fields) ApplyTo(b *Book) {
	f.Title.apply(&b.Title)
	f.Author.apply(&b.Author)
	f.Publisher.apply(&b.Publisher)
	f.Edition.apply(&b.Edition)
	f.Language.apply(&b.Language)
	f.Pages.apply(&b.Pages)
	f.Genre.apply(&b.Genre)
	f.Price.apply(&b.Price)
	f.Rating.apply(&b.Rating)
	f.StockStatus.apply(&b.StockStatus)
}

// NewBook builds the record that a create request describes, filling the
// column defaults for rating and stock status when they were not given.
func (f Fields) NewBook() Book {
	var b Book
	f.ApplyTo(&b)
	if b.Rating == nil {
		r := DefaultRating
		b.Rating = &r
	}
	if b.StockStatus == nil {
		s := DefaultStockStatus
		b.StockStatus = &s
	}
	return b
}

// Query defines the filters for listing books. Empty strings and nil
// bounds are ignored.
type Query struct {
	Search   string
	Title    string
	Author   string
	Genre    string
	MinPrice *float64
	MaxPrice *float64
}
