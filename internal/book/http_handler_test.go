package book

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"bookrecords/internal/testutil"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) (*MockRepository, http.Handler) {
	ctrl := gomock.NewController(t)
	mockRepo := NewMockRepository(ctrl)
	mux := http.NewServeMux()
	NewHTTPHandler(NewService(mockRepo)).Register(mux)
	return mockRepo, mux
}

func dune() Book {
	return Book{
		ID:          1,
		Title:       testutil.Ptr("Dune"),
		Author:      testutil.Ptr("Herbert"),
		Rating:      testutil.Ptr(0.0),
		StockStatus: testutil.Ptr("available"),
	}
}

func TestHTTPHandler_Create(t *testing.T) {
	t.Run("success applies defaults", func(t *testing.T) {
		mockRepo, h := newTestHandler(t)
		expected := dune().withID(0)
		mockRepo.EXPECT().Create(gomock.Any(), expected).Return(dune(), nil)

		w := testutil.Serve(h, testutil.NewRequest(http.MethodPost, "/books", `{"title":"Dune","author":"Herbert"}`))

		assert.Equal(t, http.StatusCreated, w.Code)
		body := testutil.DecodeJSON[map[string]any](t, w)
		assert.Equal(t, float64(1), body["id"])
		assert.Equal(t, "Dune", body["title"])
		assert.Equal(t, "Herbert", body["author"])
		assert.Contains(t, body, "publisher")
		assert.Nil(t, body["publisher"])
		assert.Equal(t, 0.0, body["rating"])
		assert.Equal(t, "available", body["stock_status"])
	})

	t.Run("unknown fields are ignored", func(t *testing.T) {
		mockRepo, h := newTestHandler(t)
		mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, b Book) (Book, error) {
			assert.Equal(t, "Dune", *b.Title)
			require.NotNil(t, b.Pages)
			assert.Equal(t, 412, *b.Pages)
			b.ID = 7
			return b, nil
		})

		w := testutil.Serve(h, testutil.NewRequest(http.MethodPost, "/books",
			`{"title":"Dune","author":"Herbert","pages":412,"id":99,"isbn":"x"}`))

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, float64(7), testutil.DecodeJSON[map[string]any](t, w)["id"])
	})

	tests := []struct {
		name           string
		body           string
		expectedStatus int
		expectedError  string
	}{
		{"malformed json", `{"title":`, http.StatusBadRequest, "Invalid JSON"},
		{"empty body", ``, http.StatusBadRequest, "Invalid JSON"},
		{"empty object", `{}`, http.StatusBadRequest, "Invalid JSON"},
		{"json array", `[{"title":"Dune"}]`, http.StatusBadRequest, "Invalid JSON"},
		{"wrong field type", `{"title":"Dune","author":"Herbert","pages":"many"}`, http.StatusBadRequest, "Invalid JSON"},
		{"missing author", `{"title":"Dune"}`, http.StatusBadRequest, "Title and Author are required"},
		{"missing title", `{"author":"Herbert"}`, http.StatusBadRequest, "Title and Author are required"},
		{"empty title", `{"title":"","author":"Herbert"}`, http.StatusBadRequest, "Title and Author are required"},
		{"null author", `{"title":"Dune","author":null}`, http.StatusBadRequest, "Title and Author are required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, h := newTestHandler(t)

			w := testutil.Serve(h, testutil.NewRequest(http.MethodPost, "/books", tt.body))

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedError, testutil.ErrorMessage(t, w))
		})
	}

	t.Run("constraint violation", func(t *testing.T) {
		mockRepo, h := newTestHandler(t)
		mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).
			Return(Book{}, fmt.Errorf("insert book: %w", ErrConstraintViolation))

		w := testutil.Serve(h, testutil.NewRequest(http.MethodPost, "/books", `{"title":"Dune","author":"Herbert"}`))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Duplicate or constraint violation", testutil.ErrorMessage(t, w))
	})

	t.Run("backend failure", func(t *testing.T) {
		mockRepo, h := newTestHandler(t)
		mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(Book{}, errors.New("connection reset"))

		w := testutil.Serve(h, testutil.NewRequest(http.MethodPost, "/books", `{"title":"Dune","author":"Herbert"}`))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "connection reset")
	})
}

func TestHTTPHandler_List(t *testing.T) {
	tests := []struct {
		name        string
		queryParams string
		expected    Query
	}{
		{"no filters", "", Query{}},
		{"search", "?search=great", Query{Search: "great"}},
		{"text filters", "?title=dune&author=herb&genre=sci", Query{Title: "dune", Author: "herb", Genre: "sci"}},
		{"search with filters", "?search=a&genre=b", Query{Search: "a", Genre: "b"}},
		{"price bounds", "?min_price=9.99&max_price=20", Query{MinPrice: testutil.Ptr(9.99), MaxPrice: testutil.Ptr(20.0)}},
		{"unparseable price ignored", "?min_price=cheap&max_price=20", Query{MaxPrice: testutil.Ptr(20.0)}},
		{"nan price ignored", "?min_price=NaN", Query{}},
		{"empty values ignored", "?search=&title=&min_price=", Query{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo, h := newTestHandler(t)
			mockRepo.EXPECT().List(gomock.Any(), tt.expected).Return([]Book{dune()}, nil)

			w := testutil.Serve(h, testutil.NewRequest(http.MethodGet, "/books"+tt.queryParams, nil))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Len(t, testutil.DecodeJSON[[]Book](t, w), 1)
		})
	}

	t.Run("empty result is an empty array", func(t *testing.T) {
		mockRepo, h := newTestHandler(t)
		mockRepo.EXPECT().List(gomock.Any(), gomock.Any()).Return(nil, nil)

		w := testutil.Serve(h, testutil.NewRequest(http.MethodGet, "/books?title=zzz", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
	})

	t.Run("server error", func(t *testing.T) {
		mockRepo, h := newTestHandler(t)
		mockRepo.EXPECT().List(gomock.Any(), gomock.Any()).Return(nil, context.DeadlineExceeded)

		w := testutil.Serve(h, testutil.NewRequest(http.MethodGet, "/books", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestHTTPHandler_GetByID(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		setupMock      func(m *MockRepository)
		expectedStatus int
	}{
		{
			name: "success",
			path: "/books/id/1",
			setupMock: func(m *MockRepository) {
				m.EXPECT().GetByID(gomock.Any(), int64(1)).Return(dune(), nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "not found",
			path: "/books/id/42",
			setupMock: func(m *MockRepository) {
				m.EXPECT().GetByID(gomock.Any(), int64(42)).Return(Book{}, ErrNotFound)
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "non-numeric id",
			path:           "/books/id/abc",
			setupMock:      func(m *MockRepository) {},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "negative id",
			path:           "/books/id/-1",
			setupMock:      func(m *MockRepository) {},
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "server error",
			path: "/books/id/1",
			setupMock: func(m *MockRepository) {
				m.EXPECT().GetByID(gomock.Any(), int64(1)).Return(Book{}, context.DeadlineExceeded)
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo, h := newTestHandler(t)
			tt.setupMock(mockRepo)

			w := testutil.Serve(h, testutil.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}

	t.Run("returns every field", func(t *testing.T) {
		mockRepo, h := newTestHandler(t)
		full := Book{
			ID:          3,
			Title:       testutil.Ptr("The Great Gatsby"),
			Author:      testutil.Ptr("F. Scott Fitzgerald"),
			Publisher:   testutil.Ptr("Scribner"),
			Edition:     testutil.Ptr("1st"),
			Language:    testutil.Ptr("en"),
			Pages:       testutil.Ptr(180),
			Genre:       testutil.Ptr("Novel"),
			Price:       testutil.Ptr(10.5),
			Rating:      testutil.Ptr(4.5),
			StockStatus: testutil.Ptr("out_of_stock"),
		}
		mockRepo.EXPECT().GetByID(gomock.Any(), int64(3)).Return(full, nil)

		w := testutil.Serve(h, testutil.NewRequest(http.MethodGet, "/books/id/3", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, full, testutil.DecodeJSON[Book](t, w))
	})
}

func TestHTTPHandler_ListByAuthor(t *testing.T) {
	t.Run("matches", func(t *testing.T) {
		mockRepo, h := newTestHandler(t)
		mockRepo.EXPECT().List(gomock.Any(), Query{Author: "herb"}).Return([]Book{dune()}, nil)

		w := testutil.Serve(h, testutil.NewRequest(http.MethodGet, "/books/author/herb", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, testutil.DecodeJSON[[]Book](t, w), 1)
	})

	t.Run("no matches is 404 naming the term", func(t *testing.T) {
		mockRepo, h := newTestHandler(t)
		mockRepo.EXPECT().List(gomock.Any(), Query{Author: "Tolkien"}).Return([]Book{}, nil)

		w := testutil.Serve(h, testutil.NewRequest(http.MethodGet, "/books/author/Tolkien", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "No books found for author containing 'Tolkien'", testutil.ErrorMessage(t, w))
	})

	t.Run("escaped path segment", func(t *testing.T) {
		mockRepo, h := newTestHandler(t)
		mockRepo.EXPECT().List(gomock.Any(), Query{Author: "Le Guin"}).Return([]Book{dune()}, nil)

		w := testutil.Serve(h, testutil.NewRequest(http.MethodGet, "/books/author/Le%20Guin", nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("server error", func(t *testing.T) {
		mockRepo, h := newTestHandler(t)
		mockRepo.EXPECT().List(gomock.Any(), gomock.Any()).Return(nil, errors.New("db down"))

		w := testutil.Serve(h, testutil.NewRequest(http.MethodGet, "/books/author/x", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestHTTPHandler_Update(t *testing.T) {
	t.Run("partial update", func(t *testing.T) {
		mockRepo, h := newTestHandler(t)
		expectedFields := Fields{Price: Some(12.5), Publisher: Null[string]()}
		updated := dune()
		updated.Price = testutil.Ptr(12.5)
		gomock.InOrder(
			mockRepo.EXPECT().GetByID(gomock.Any(), int64(1)).Return(dune(), nil),
			mockRepo.EXPECT().Update(gomock.Any(), int64(1), expectedFields).Return(updated, nil),
		)

		w := testutil.Serve(h, testutil.NewRequest(http.MethodPut, "/books/id/1", `{"price":12.5,"publisher":null,"color":"red"}`))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, updated, testutil.DecodeJSON[Book](t, w))
	})

	t.Run("empty title is accepted on update", func(t *testing.T) {
		mockRepo, h := newTestHandler(t)
		mockRepo.EXPECT().GetByID(gomock.Any(), int64(1)).Return(dune(), nil)
		mockRepo.EXPECT().Update(gomock.Any(), int64(1), Fields{Title: Some("")}).Return(dune(), nil)

		w := testutil.Serve(h, testutil.NewRequest(http.MethodPut, "/books/id/1", `{"title":""}`))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing record wins over bad body", func(t *testing.T) {
		mockRepo, h := newTestHandler(t)
		mockRepo.EXPECT().GetByID(gomock.Any(), int64(9)).Return(Book{}, ErrNotFound)

		w := testutil.Serve(h, testutil.NewRequest(http.MethodPut, "/books/id/9", `not json`))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("invalid body", func(t *testing.T) {
		mockRepo, h := newTestHandler(t)
		mockRepo.EXPECT().GetByID(gomock.Any(), int64(1)).Return(dune(), nil)

		w := testutil.Serve(h, testutil.NewRequest(http.MethodPut, "/books/id/1", `{}`))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid JSON", testutil.ErrorMessage(t, w))
	})

	t.Run("deleted between lookup and update", func(t *testing.T) {
		mockRepo, h := newTestHandler(t)
		mockRepo.EXPECT().GetByID(gomock.Any(), int64(1)).Return(dune(), nil)
		mockRepo.EXPECT().Update(gomock.Any(), int64(1), gomock.Any()).Return(Book{}, ErrNotFound)

		w := testutil.Serve(h, testutil.NewRequest(http.MethodPut, "/books/id/1", `{"genre":"SF"}`))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("constraint violation", func(t *testing.T) {
		mockRepo, h := newTestHandler(t)
		mockRepo.EXPECT().GetByID(gomock.Any(), int64(1)).Return(dune(), nil)
		mockRepo.EXPECT().Update(gomock.Any(), int64(1), gomock.Any()).
			Return(Book{}, fmt.Errorf("update book: %w", ErrConstraintViolation))

		w := testutil.Serve(h, testutil.NewRequest(http.MethodPut, "/books/id/1", `{"genre":"SF"}`))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("backend failure", func(t *testing.T) {
		mockRepo, h := newTestHandler(t)
		mockRepo.EXPECT().GetByID(gomock.Any(), int64(1)).Return(dune(), nil)
		mockRepo.EXPECT().Update(gomock.Any(), int64(1), gomock.Any()).Return(Book{}, errors.New("tx aborted"))

		w := testutil.Serve(h, testutil.NewRequest(http.MethodPut, "/books/id/1", `{"genre":"SF"}`))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestHTTPHandler_Delete(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		mockRepo, h := newTestHandler(t)
		mockRepo.EXPECT().Delete(gomock.Any(), int64(1)).Return(nil)

		w := testutil.Serve(h, testutil.NewRequest(http.MethodDelete, "/books/id/1", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"message":"Book deleted successfully"}`, w.Body.String())
	})

	t.Run("second delete is 404", func(t *testing.T) {
		mockRepo, h := newTestHandler(t)
		gomock.InOrder(
			mockRepo.EXPECT().Delete(gomock.Any(), int64(1)).Return(nil),
			mockRepo.EXPECT().Delete(gomock.Any(), int64(1)).Return(ErrNotFound),
		)

		first := testutil.Serve(h, testutil.NewRequest(http.MethodDelete, "/books/id/1", nil))
		second := testutil.Serve(h, testutil.NewRequest(http.MethodDelete, "/books/id/1", nil))

		assert.Equal(t, http.StatusOK, first.Code)
		assert.Equal(t, http.StatusNotFound, second.Code)
	})

	t.Run("backend failure", func(t *testing.T) {
		mockRepo, h := newTestHandler(t)
		mockRepo.EXPECT().Delete(gomock.Any(), int64(1)).Return(errors.New("boom"))

		w := testutil.Serve(h, testutil.NewRequest(http.MethodDelete, "/books/id/1", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestHTTPHandler_MethodNotAllowed(t *testing.T) {
	_, h := newTestHandler(t)

	w := testutil.Serve(h, testutil.NewRequest(http.MethodPatch, "/books/id/1", `{"title":"x"}`))

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func (b Book) withID(id int64) Book {
	b.ID = id
	return b
}
