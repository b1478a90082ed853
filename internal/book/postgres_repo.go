package book

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const bookColumns = `id, title, author, publisher, edition, language, pages, genre, price, rating, stock_status`

type PostgresRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, timeout: timeout}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

// Ping reports whether the pool can reach the database.
func (r *PostgresRepo) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *PostgresRepo) Create(ctx context.Context, b Book) (Book, error) {
	const query = `
		INSERT INTO books (title, author, publisher, edition, language, pages, genre, price, rating, stock_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + bookColumns

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var out Book
	err := pgx.BeginFunc(timeoutCtx, r.db, func(tx pgx.Tx) error {
		return scanBook(tx.QueryRow(timeoutCtx, query,
			b.Title, b.Author, b.Publisher, b.Edition, b.Language,
			b.Pages, b.Genre, b.Price, b.Rating, b.StockStatus,
		), &out)
	})
	if err != nil {
		return Book{}, translateError("insert book", err)
	}
	return out, nil
}

func (r *PostgresRepo) GetByID(ctx context.Context, id int64) (Book, error) {
	const query = `SELECT ` + bookColumns + ` FROM books WHERE id = $1`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var b Book
	if err := scanBook(r.db.QueryRow(timeoutCtx, query, id), &b); err != nil {
		return Book{}, translateError("get book", err)
	}
	return b, nil
}

func (r *PostgresRepo) List(ctx context.Context, q Query) ([]Book, error) {
	where, args := buildFilter(q)
	query := `SELECT ` + bookColumns + ` FROM books ` + where + ` ORDER BY id`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Query(timeoutCtx, query, args...)
	if err != nil {
		return nil, translateError("list books", err)
	}
	defer rows.Close()

	out := []Book{}
	for rows.Next() {
		var b Book
		if err := scanBook(rows, &b); err != nil {
			return nil, translateError("scan book", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError("list books", err)
	}
	return out, nil
}

func (r *PostgresRepo) Update(ctx context.Context, id int64, f Fields) (Book, error) {
	const selectSQL = `SELECT ` + bookColumns + ` FROM books WHERE id = $1 FOR UPDATE`
	const updateSQL = `
		UPDATE books SET
			title = $2,
			author = $3,
			publisher = $4,
			edition = $5,
			language = $6,
			pages = $7,
			genre = $8,
			price = $9,
			rating = $10,
			stock_status = $11
		WHERE id = $1
		RETURNING ` + bookColumns

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var out Book
	err := pgx.BeginFunc(timeoutCtx, r.db, func(tx pgx.Tx) error {
		var current Book
		if err := scanBook(tx.QueryRow(timeoutCtx, selectSQL, id), &current); err != nil {
			return err
		}
		f.ApplyTo(&current)
		return scanBook(tx.QueryRow(timeoutCtx, updateSQL, id,
			current.Title, current.Author, current.Publisher, current.Edition, current.Language,
			current.Pages, current.Genre, current.Price, current.Rating, current.StockStatus,
		), &out)
	})
	if err != nil {
		return Book{}, translateError("update book", err)
	}
	return out, nil
}

func (r *PostgresRepo) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM books WHERE id = $1`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	err := pgx.BeginFunc(timeoutCtx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(timeoutCtx, query, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return translateError("delete book", err)
	}
	return nil
}

func scanBook(row pgx.Row, b *Book) error {
	return row.Scan(
		&b.ID, &b.Title, &b.Author, &b.Publisher, &b.Edition, &b.Language,
		&b.Pages, &b.Genre, &b.Price, &b.Rating, &b.StockStatus,
	)
}

// buildFilter turns q into a WHERE clause and its positional arguments.
// Text filters are case-insensitive substring matches; price bounds are
// inclusive.
func buildFilter(q Query) (string, []any) {
	clauses := []string{}
	args := []any{}
	argn := 1

	if q.Search != "" {
		clauses = append(clauses, fmt.Sprintf("(title ILIKE $%d OR author ILIKE $%d OR genre ILIKE $%d)", argn, argn, argn))
		args = append(args, containsPattern(q.Search))
		argn++
	}

	textFilters := []struct {
		column string
		value  string
	}{
		{"title", q.Title},
		{"author", q.Author},
		{"genre", q.Genre},
	}
	for _, tf := range textFilters {
		if tf.value == "" {
			continue
		}
		clauses = append(clauses, fmt.Sprintf("%s ILIKE $%d", tf.column, argn))
		args = append(args, containsPattern(tf.value))
		argn++
	}

	if q.MinPrice != nil {
		clauses = append(clauses, fmt.Sprintf("price >= $%d", argn))
		args = append(args, *q.MinPrice)
		argn++
	}
	if q.MaxPrice != nil {
		clauses = append(clauses, fmt.Sprintf("price <= $%d", argn))
		args = append(args, *q.MaxPrice)
	}

	if len(clauses) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern wraps v for ILIKE so that it matches as a literal
// substring. Backslash is the default LIKE escape in PostgreSQL.
func containsPattern(v string) string {
	return "%" + likeEscaper.Replace(v) + "%"
}

// translateError maps driver errors onto the package error kinds.
func translateError(op string, err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "23") {
		return fmt.Errorf("%s: %w: %s", op, ErrConstraintViolation, pgErr.Message)
	}
	return fmt.Errorf("%s: %w", op, err)
}
