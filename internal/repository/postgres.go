// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/fastprintguys/printbook-system/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrUserExists возвращается при попытке создать пользователя с уже существующим email.
var (
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrProjectNotFound возвращается, если проект книги не существует или принадлежит
	// другому пользователю. Эти два случая намеренно неразличимы для вызывающего.
	ErrProjectNotFound = errors.New("book project not found")
	// ErrCatalogRefNotFound возвращается, если выбранная позиция каталога не существует.
	ErrCatalogRefNotFound = errors.New("catalog reference not found")
)

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	// Цены каталога хранятся в NUMERIC и читаются как decimal.Decimal.
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// CreateUser создаёт нового пользователя.
func (r *PostgresRepository) CreateUser(ctx context.Context, email string, passwordHash []byte, isStaff bool) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (email, password_hash, is_staff) VALUES ($1, $2, $3) RETURNING id`,
		email, passwordHash, isStaff,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("%w: %s", ErrUserExists, email)
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// GetUserByEmail возвращает пользователя по email.
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, is_staff, created_at FROM users WHERE email = $1`,
		email,
	)

	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.IsStaff, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &u, nil
}

// Catalog возвращает все справочные данные каталога.
func (r *PostgresRepository) Catalog(ctx context.Context) (*model.Catalog, error) {
	c := &model.Catalog{}

	rows, err := r.pool.Query(ctx, `SELECT id, name FROM trim_sizes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select trim sizes: %w", err)
	}
	for rows.Next() {
		var ts model.TrimSize
		if err := rows.Scan(&ts.ID, &ts.Name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan trim size: %w", err)
		}
		c.TrimSizes = append(c.TrimSizes, ts)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	rows, err = r.pool.Query(ctx,
		`SELECT id, trim_size_id, name, price, min_pages, max_pages FROM binding_types ORDER BY trim_size_id, id`)
	if err != nil {
		return nil, fmt.Errorf("select binding types: %w", err)
	}
	for rows.Next() {
		var b model.BindingType
		if err := rows.Scan(&b.ID, &b.TrimSizeID, &b.Name, &b.Price, &b.MinPages, &b.MaxPages); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan binding type: %w", err)
		}
		c.BindingTypes = append(c.BindingTypes, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	rows, err = r.pool.Query(ctx, `SELECT id, name, price_per_page FROM interior_colors ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select interior colors: %w", err)
	}
	for rows.Next() {
		var ic model.InteriorColor
		if err := rows.Scan(&ic.ID, &ic.Name, &ic.PricePerPage); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan interior color: %w", err)
		}
		c.InteriorColors = append(c.InteriorColors, ic)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	rows, err = r.pool.Query(ctx, `SELECT id, name, price_per_page FROM paper_types ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select paper types: %w", err)
	}
	for rows.Next() {
		var pt model.PaperType
		if err := rows.Scan(&pt.ID, &pt.Name, &pt.PricePerPage); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan paper type: %w", err)
		}
		c.PaperTypes = append(c.PaperTypes, pt)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	rows, err = r.pool.Query(ctx, `SELECT id, name, price FROM cover_finishes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select cover finishes: %w", err)
	}
	for rows.Next() {
		var cf model.CoverFinish
		if err := rows.Scan(&cf.ID, &cf.Name, &cf.Price); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan cover finish: %w", err)
		}
		c.CoverFinishes = append(c.CoverFinishes, cf)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return c, nil
}

// CatalogSelection содержит выбранные пользователем позиции каталога.
type CatalogSelection struct {
	TrimSize model.TrimSize
	Binding  model.BindingType
	Color    model.InteriorColor
	Paper    model.PaperType
	Finish   model.CoverFinish
}

// GetCatalogSelection загружает позиции каталога по идентификаторам.
// Отсутствующая позиция приводит к ErrCatalogRefNotFound с указанием, какая именно.
func (r *PostgresRepository) GetCatalogSelection(ctx context.Context, trimSizeID, bindingTypeID, interiorColorID, paperTypeID, coverFinishID int64) (*CatalogSelection, error) {
	sel := &CatalogSelection{}

	err := r.pool.QueryRow(ctx,
		`SELECT id, name FROM trim_sizes WHERE id = $1`, trimSizeID,
	).Scan(&sel.TrimSize.ID, &sel.TrimSize.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: trim size %d", ErrCatalogRefNotFound, trimSizeID)
		}
		return nil, fmt.Errorf("get trim size: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`SELECT id, trim_size_id, name, price, min_pages, max_pages FROM binding_types WHERE id = $1`,
		bindingTypeID,
	).Scan(&sel.Binding.ID, &sel.Binding.TrimSizeID, &sel.Binding.Name, &sel.Binding.Price, &sel.Binding.MinPages, &sel.Binding.MaxPages)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: binding type %d", ErrCatalogRefNotFound, bindingTypeID)
		}
		return nil, fmt.Errorf("get binding type: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`SELECT id, name, price_per_page FROM interior_colors WHERE id = $1`, interiorColorID,
	).Scan(&sel.Color.ID, &sel.Color.Name, &sel.Color.PricePerPage)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: interior color %d", ErrCatalogRefNotFound, interiorColorID)
		}
		return nil, fmt.Errorf("get interior color: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`SELECT id, name, price_per_page FROM paper_types WHERE id = $1`, paperTypeID,
	).Scan(&sel.Paper.ID, &sel.Paper.Name, &sel.Paper.PricePerPage)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: paper type %d", ErrCatalogRefNotFound, paperTypeID)
		}
		return nil, fmt.Errorf("get paper type: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`SELECT id, name, price FROM cover_finishes WHERE id = $1`, coverFinishID,
	).Scan(&sel.Finish.ID, &sel.Finish.Name, &sel.Finish.Price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: cover finish %d", ErrCatalogRefNotFound, coverFinishID)
		}
		return nil, fmt.Errorf("get cover finish: %w", err)
	}

	return sel, nil
}

const projectColumns = `id, user_id, title, category, language, page_count,
	trim_size_id, binding_type_id, cover_finish_id, interior_color_id, paper_type_id,
	cover_file, cover_description, manuscript_file, created_at, updated_at`

func scanProject(row pgx.Row) (*model.BookProject, error) {
	var p model.BookProject
	err := row.Scan(
		&p.ID, &p.UserID, &p.Title, &p.Category, &p.Language, &p.PageCount,
		&p.TrimSizeID, &p.BindingTypeID, &p.CoverFinishID, &p.InteriorColorID, &p.PaperTypeID,
		&p.CoverFile, &p.CoverDescription, &p.ManuscriptFile, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProject сохраняет новый проект книги и заполняет его идентификатор и метки времени.
func (r *PostgresRepository) CreateProject(ctx context.Context, p *model.BookProject) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO book_projects
			(user_id, title, category, language, page_count,
			 trim_size_id, binding_type_id, cover_finish_id, interior_color_id, paper_type_id,
			 cover_file, cover_description, manuscript_file)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING id, created_at, updated_at`,
		p.UserID, p.Title, p.Category, p.Language, p.PageCount,
		p.TrimSizeID, p.BindingTypeID, p.CoverFinishID, p.InteriorColorID, p.PaperTypeID,
		p.CoverFile, p.CoverDescription, p.ManuscriptFile,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

// ProjectsByUser возвращает проекты пользователя, новые сначала.
func (r *PostgresRepository) ProjectsByUser(ctx context.Context, userID int64) ([]model.BookProject, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+projectColumns+`
		 FROM book_projects
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select projects: %w", err)
	}
	defer rows.Close()

	var projects []model.BookProject
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return projects, nil
}

// ProjectByID возвращает проект по идентификатору, если он принадлежит пользователю.
func (r *PostgresRepository) ProjectByID(ctx context.Context, userID, id int64) (*model.BookProject, error) {
	p, err := scanProject(r.pool.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM book_projects WHERE id = $1 AND user_id = $2`,
		id, userID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

// UpdateProject перезаписывает проект пользователя и обновляет метку времени изменения.
func (r *PostgresRepository) UpdateProject(ctx context.Context, p *model.BookProject) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE book_projects
		 SET title = $3, category = $4, language = $5, page_count = $6,
		     trim_size_id = $7, binding_type_id = $8, cover_finish_id = $9,
		     interior_color_id = $10, paper_type_id = $11,
		     cover_file = $12, cover_description = $13, manuscript_file = $14,
		     updated_at = now()
		 WHERE id = $1 AND user_id = $2
		 RETURNING updated_at`,
		p.ID, p.UserID, p.Title, p.Category, p.Language, p.PageCount,
		p.TrimSizeID, p.BindingTypeID, p.CoverFinishID, p.InteriorColorID, p.PaperTypeID,
		p.CoverFile, p.CoverDescription, p.ManuscriptFile,
	).Scan(&p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrProjectNotFound
		}
		return fmt.Errorf("update project: %w", err)
	}
	return nil
}

// DeleteProject удаляет проект пользователя.
func (r *PostgresRepository) DeleteProject(ctx context.Context, userID, id int64) error {
	cmdTag, err := r.pool.Exec(ctx,
		`DELETE FROM book_projects WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrProjectNotFound
	}
	return nil
}

// AdminProjectRow описывает проект книги в плоском виде для административного списка.
type AdminProjectRow struct {
	ID               int64     `json:"id"`
	Title            string    `json:"title"`
	UserEmail        string    `json:"user_email"`
	Category         string    `json:"category"`
	Language         string    `json:"language"`
	PageCount        int       `json:"page_count"`
	CreatedAt        time.Time `json:"created_at"`
	TrimSize         string    `json:"trim_size"`
	BindingType      string    `json:"binding_type"`
	CoverFinish      string    `json:"cover_finish"`
	InteriorColor    string    `json:"interior_color"`
	PaperType        string    `json:"paper_type"`
	ManuscriptFile   *string   `json:"pdf_file"`
	CoverFile        *string   `json:"cover_file"`
	CoverDescription *string   `json:"cover_description"`
}

// AllProjects возвращает проекты всех пользователей для административного списка, новые сначала.
func (r *PostgresRepository) AllProjects(ctx context.Context) ([]AdminProjectRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT p.id, p.title, u.email, p.category, p.language, p.page_count, p.created_at,
		        t.name, b.name, f.name, c.name, pt.name,
		        p.manuscript_file, p.cover_file, p.cover_description
		 FROM book_projects p
		 JOIN users u ON u.id = p.user_id
		 JOIN trim_sizes t ON t.id = p.trim_size_id
		 JOIN binding_types b ON b.id = p.binding_type_id
		 JOIN cover_finishes f ON f.id = p.cover_finish_id
		 JOIN interior_colors c ON c.id = p.interior_color_id
		 JOIN paper_types pt ON pt.id = p.paper_type_id
		 ORDER BY p.created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("select all projects: %w", err)
	}
	defer rows.Close()

	var res []AdminProjectRow
	for rows.Next() {
		var row AdminProjectRow
		err := rows.Scan(
			&row.ID, &row.Title, &row.UserEmail, &row.Category, &row.Language, &row.PageCount, &row.CreatedAt,
			&row.TrimSize, &row.BindingType, &row.CoverFinish, &row.InteriorColor, &row.PaperType,
			&row.ManuscriptFile, &row.CoverFile, &row.CoverDescription,
		)
		if err != nil {
			return nil, fmt.Errorf("scan admin row: %w", err)
		}
		res = append(res, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
