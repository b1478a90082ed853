package book

import (
	"context"
)

// Service provides book-related business logic.
type Service struct {
	repo Repository
}

// NewService creates a new book service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create stores a new book built from f. Title and author must be
// non-empty; rating and stock status take their defaults when omitted.
func (s *Service) Create(ctx context.Context, f Fields) (Book, error) {
	if isBlank(f.Title) || isBlank(f.Author) {
		return Book{}, ErrValidation
	}
	return s.repo.Create(ctx, f.NewBook())
}

// List returns the books matching q in insertion order.
func (s *Service) List(ctx context.Context, q Query) ([]Book, error) {
	books, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, err
	}
	if books == nil {
		books = []Book{}
	}
	return books, nil
}

// GetByID returns a book by its id.
func (s *Service) GetByID(ctx context.Context, id int64) (Book, error) {
	return s.repo.GetByID(ctx, id)
}

// ListByAuthor returns the books whose author contains name, ignoring
// case. An empty result is reported as ErrNotFound.
func (s *Service) ListByAuthor(ctx context.Context, name string) ([]Book, error) {
	books, err := s.repo.List(ctx, Query{Author: name})
	if err != nil {
		return nil, err
	}
	if len(books) == 0 {
		return nil, ErrNotFound
	}
	return books, nil
}

// Update applies a partial update. Title and author are not re-checked.
func (s *Service) Update(ctx context.Context, id int64, f Fields) (Book, error) {
	return s.repo.Update(ctx, id, f)
}

// Delete removes a book by its id.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func isBlank(o Optional[string]) bool {
	return o.Value == nil || *o.Value == ""
}
