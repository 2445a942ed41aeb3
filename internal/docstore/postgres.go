package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/TaffyWrinkle/TeamCloud/internal/domain"
)

// PostgresConfig configures the Postgres store.
type PostgresConfig struct {
	URL         string
	TablePrefix string // environment prefix (dev_, test_, prod_)
	PageSize    int
}

// PostgresStore implements Store on a single JSONB document table. The
// table emulates the partitioned store: primary key (container, partition,
// id), partial unique indexes for container unique keys, and structured
// filters compiled to jsonb containment with bind parameters.
type PostgresStore struct {
	pool     *pgxpool.Pool
	table    string
	pageSize int
	logger   *slog.Logger
}

// NewPostgresStore connects a pgx pool and returns the store.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig, logger *slog.Logger) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5

	// Port 6543 is a transaction pooler (PgBouncer) which rejects prepared
	// statements; cached statement descriptions keep the extended protocol
	// working there. An explicit default_query_exec_mode in the connection
	// string takes precedence.
	if config.ConnConfig.Port == 6543 && config.ConnConfig.DefaultQueryExecMode == pgx.QueryExecModeCacheStatement {
		config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheDescribe
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{
		pool:     pool,
		table:    cfg.TablePrefix + "documents",
		pageSize: cfg.PageSize,
		logger:   logger,
	}, nil
}

// EnsureContainers creates the document table and the partial unique
// indexes backing container unique keys. The table name comes from the
// environment prefix and container names are code constants, so the
// interpolated DDL carries no caller input.
func (s *PostgresStore) EnsureContainers(ctx context.Context) error {
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			container TEXT NOT NULL,
			partition TEXT NOT NULL,
			id        TEXT NOT NULL,
			doc       JSONB NOT NULL,
			PRIMARY KEY (container, partition, id)
		)
	`, s.table)
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}

	for _, def := range containers {
		for _, path := range def.UniqueKeys {
			segments, err := splitPath(path)
			if err != nil {
				return err
			}
			index := fmt.Sprintf(
				"CREATE UNIQUE INDEX IF NOT EXISTS %s_%s_%s_key ON %s (partition, (doc #>> '{%s}')) WHERE container = '%s'",
				s.table, def.Name, strings.Join(segments, "_"),
				s.table, strings.Join(segments, ","), def.Name,
			)
			if _, err := s.pool.Exec(ctx, index); err != nil {
				return fmt.Errorf("create unique index for %s.%s: %w", def.Name, path, err)
			}
		}
	}
	s.logger.Debug("document table ready", "table", s.table)
	return nil
}

// Read returns the document with the given id.
func (s *PostgresStore) Read(ctx context.Context, container, partition, id string) ([]byte, error) {
	query := fmt.Sprintf("SELECT doc FROM %s WHERE container = $1 AND partition = $2 AND id = $3", s.table)

	var doc []byte
	err := s.pool.QueryRow(ctx, query, container, partition, id).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("document %s/%s: %w", container, id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("read document %s/%s: %w", container, id, err)
	}
	return doc, nil
}

// Create inserts a new document.
func (s *PostgresStore) Create(ctx context.Context, container, partition, id string, doc []byte) ([]byte, error) {
	query := fmt.Sprintf("INSERT INTO %s (container, partition, id, doc) VALUES ($1, $2, $3, $4) RETURNING doc", s.table)

	var stored []byte
	err := s.pool.QueryRow(ctx, query, container, partition, id, doc).Scan(&stored)
	if err != nil {
		if isPgDuplicateError(err) {
			return nil, fmt.Errorf("document %s/%s: %w", container, id, domain.ErrConflict)
		}
		return nil, fmt.Errorf("create document %s/%s: %w", container, id, err)
	}
	return stored, nil
}

// Upsert inserts or replaces the document with the given id. A unique-key
// collision with another document still surfaces as a conflict.
func (s *PostgresStore) Upsert(ctx context.Context, container, partition, id string, doc []byte) ([]byte, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (container, partition, id, doc) VALUES ($1, $2, $3, $4)
		ON CONFLICT (container, partition, id) DO UPDATE SET doc = EXCLUDED.doc
		RETURNING doc
	`, s.table)

	var stored []byte
	err := s.pool.QueryRow(ctx, query, container, partition, id, doc).Scan(&stored)
	if err != nil {
		if isPgDuplicateError(err) {
			return nil, fmt.Errorf("document %s/%s: %w", container, id, domain.ErrConflict)
		}
		return nil, fmt.Errorf("upsert document %s/%s: %w", container, id, err)
	}
	return stored, nil
}

// Delete removes the document with the given id.
func (s *PostgresStore) Delete(ctx context.Context, container, partition, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE container = $1 AND partition = $2 AND id = $3", s.table)

	result, err := s.pool.Exec(ctx, query, container, partition, id)
	if err != nil {
		return fmt.Errorf("delete document %s/%s: %w", container, id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("document %s/%s: %w", container, id, domain.ErrNotFound)
	}
	return nil
}

// Query compiles the structured filter to jsonb containment terms and
// streams matching rows in pages. Rows come back in id order.
func (s *PostgresStore) Query(container, partition string, query Query) Pager {
	where, args, err := compilePostgresQuery(query)
	if err != nil {
		return &errPager{err: err}
	}
	sql := fmt.Sprintf("SELECT doc FROM %s WHERE container = $1 AND partition = $2%s ORDER BY id", s.table, where)
	return &postgresPager{
		pool:     s.pool,
		sql:      sql,
		args:     append([]any{container, partition}, args...),
		pageSize: s.pageSize,
	}
}

// Close releases the connection pool.
func (s *PostgresStore) Close(_ context.Context) error {
	s.pool.Close()
	return nil
}

// compilePostgresQuery renders the query clauses as AND-ed SQL terms.
// Every condition becomes a jsonb containment test against one bound
// parameter; the returned args continue after the fixed $1/$2
// container/partition parameters.
func compilePostgresQuery(query Query) (string, []any, error) {
	var where strings.Builder
	var args []any
	for _, clause := range query.Clauses {
		var terms []string
		for _, condition := range clause.Any {
			term, err := compilePostgresCondition(condition, &args)
			if err != nil {
				return "", nil, err
			}
			terms = append(terms, term)
		}
		if len(terms) == 0 {
			continue
		}
		where.WriteString(" AND (" + strings.Join(terms, " OR ") + ")")
	}
	return where.String(), args, nil
}

func compilePostgresCondition(condition Condition, args *[]any) (string, error) {
	segments, err := splitPath(condition.Path)
	if err != nil {
		return "", err
	}
	switch condition.Op {
	case OpEq:
		return bindPgContainment(args, segments, condition.Value, false)
	case OpIn:
		if len(condition.Values) == 0 {
			return "FALSE", nil
		}
		terms := make([]string, 0, len(condition.Values))
		for _, value := range condition.Values {
			term, err := bindPgContainment(args, segments, value, false)
			if err != nil {
				return "", err
			}
			terms = append(terms, term)
		}
		return "(" + strings.Join(terms, " OR ") + ")", nil
	case OpContains:
		return bindPgContainment(args, segments, condition.Value, true)
	default:
		return "", fmt.Errorf("unsupported query operator %q", condition.Op)
	}
}

// bindPgContainment binds one containment parameter: the condition value
// nested under its path segments, array-wrapped for containment conditions.
// jsonb @> gives exact matching for scalars and partial-object matching for
// array elements, so one operator covers all three condition kinds.
func bindPgContainment(args *[]any, segments []string, value any, wrapArray bool) (string, error) {
	nested := value
	if wrapArray {
		nested = []any{value}
	}
	for i := len(segments) - 1; i >= 0; i-- {
		nested = map[string]any{segments[i]: nested}
	}
	encoded, err := json.Marshal(nested)
	if err != nil {
		return "", fmt.Errorf("encode query value: %w", err)
	}
	*args = append(*args, string(encoded))
	return fmt.Sprintf("doc @> $%d::jsonb", len(*args)+2), nil
}

func isPgDuplicateError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 23505 = unique_violation
		return pgErr.Code == "23505"
	}
	return false
}

// postgresPager streams query rows and batches them into pages. The rows
// cursor stays open between pages; Close releases it when a consumer stops
// early.
type postgresPager struct {
	pool     *pgxpool.Pool
	sql      string
	args     []any
	pageSize int
	rows     pgx.Rows
	started  bool
	done     bool
}

func (p *postgresPager) More() bool { return !p.done }

func (p *postgresPager) NextPage(ctx context.Context) ([][]byte, error) {
	if p.done {
		return nil, nil
	}
	if !p.started {
		rows, err := p.pool.Query(ctx, p.sql, p.args...)
		if err != nil {
			p.done = true
			return nil, fmt.Errorf("query documents: %w", err)
		}
		p.rows = rows
		p.started = true
	}

	page := make([][]byte, 0, p.pageSize)
	for len(page) < p.pageSize && p.rows.Next() {
		var doc []byte
		if err := p.rows.Scan(&doc); err != nil {
			p.release()
			return nil, fmt.Errorf("scan document: %w", err)
		}
		page = append(page, doc)
	}
	if len(page) < p.pageSize {
		err := p.rows.Err()
		p.release()
		if err != nil {
			return nil, fmt.Errorf("iterate documents: %w", err)
		}
	}
	return page, nil
}

func (p *postgresPager) Close() error {
	p.release()
	return nil
}

func (p *postgresPager) release() {
	if p.rows != nil {
		p.rows.Close()
	}
	p.done = true
}
