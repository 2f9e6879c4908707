package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/solatis/spelfilter/internal/types"
)

// Store is the persistence layer for employee records, saved filters and
// API keys. It is safe for concurrent use.
type Store struct {
	db      *sqlx.DB
	queries *Queries
}

// NewStore loads the named queries for db.
func NewStore(db *sqlx.DB) (*Store, error) {
	queries, err := LoadQueries(db)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, queries: queries}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// employeeRow is the flat storage form of types.Employee. Civil values and
// decimals travel as their canonical text.
type employeeRow struct {
	EmployeeID        string         `db:"employee_id"`
	Name              string         `db:"name"`
	Age               int            `db:"age"`
	BirthDate         string         `db:"birth_date"`
	RegisterDateTime  string         `db:"register_datetime"`
	BedTime           string         `db:"bed_time"`
	WorkingDurationNs int64          `db:"working_duration_ns"`
	AccountBalance    string         `db:"account_balance"`
	EmployeeType      int            `db:"employee_type"`
	AddressCity       sql.NullString `db:"address_city"`
	AddressCountry    sql.NullString `db:"address_country"`
	AddressZip        sql.NullInt64  `db:"address_zip"`
}

func (r *employeeRow) employee() (types.Employee, error) {
	e := types.Employee{
		Age:             r.Age,
		Name:            r.Name,
		WorkingDuration: time.Duration(r.WorkingDurationNs),
		EmployeeType:    types.EmployeeType(r.EmployeeType),
	}

	var err error
	if e.BirthDate, err = civil.ParseDate(r.BirthDate); err != nil {
		return e, fmt.Errorf("employee %s: birth_date: %w", r.EmployeeID, err)
	}
	if e.RegisterDateTime, err = time.Parse(time.RFC3339Nano, r.RegisterDateTime); err != nil {
		return e, fmt.Errorf("employee %s: register_datetime: %w", r.EmployeeID, err)
	}
	if e.BedTime, err = civil.ParseTime(r.BedTime); err != nil {
		return e, fmt.Errorf("employee %s: bed_time: %w", r.EmployeeID, err)
	}
	if _, _, err = e.AccountBalance.SetString(r.AccountBalance); err != nil {
		return e, fmt.Errorf("employee %s: account_balance: %w", r.EmployeeID, err)
	}

	if r.AddressCity.Valid || r.AddressCountry.Valid || r.AddressZip.Valid {
		e.Address = &types.Address{
			City:    r.AddressCity.String,
			Country: r.AddressCountry.String,
			Zip:     int(r.AddressZip.Int64),
		}
	}
	return e, nil
}

func newEmployeeRow(id string, e *types.Employee) employeeRow {
	r := employeeRow{
		EmployeeID:        id,
		Name:              e.Name,
		Age:               e.Age,
		BirthDate:         e.BirthDate.String(),
		RegisterDateTime:  e.RegisterDateTime.UTC().Format(time.RFC3339Nano),
		BedTime:           e.BedTime.String(),
		WorkingDurationNs: int64(e.WorkingDuration),
		AccountBalance:    e.AccountBalance.String(),
		EmployeeType:      int(e.EmployeeType),
	}
	if a := e.Address; a != nil {
		r.AddressCity = sql.NullString{String: a.City, Valid: true}
		r.AddressCountry = sql.NullString{String: a.Country, Valid: true}
		r.AddressZip = sql.NullInt64{Int64: int64(a.Zip), Valid: true}
	}
	return r
}

// ListEmployees returns every stored employee ordered by ID.
func (s *Store) ListEmployees(ctx context.Context) ([]types.Employee, error) {
	var rows []employeeRow
	if err := s.queries.Select(ctx, "list-employees", &rows); err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}

	out := make([]types.Employee, 0, len(rows))
	for i := range rows {
		e, err := rows[i].employee()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// InsertEmployee stores e under a new UUIDv7 and returns the ID.
func (s *Store) InsertEmployee(ctx context.Context, e *types.Employee) (string, error) {
	if !e.BirthDate.IsValid() {
		return "", fmt.Errorf("insert employee: invalid birth date %s", e.BirthDate)
	}
	if !e.BedTime.IsValid() {
		return "", fmt.Errorf("insert employee: invalid bed time %s", e.BedTime)
	}

	id := types.NewEmployeeID()
	r := newEmployeeRow(id, e)
	_, err := s.queries.Exec(ctx, "insert-employee",
		r.EmployeeID, r.Name, r.Age, r.BirthDate, r.RegisterDateTime, r.BedTime,
		r.WorkingDurationNs, r.AccountBalance, r.EmployeeType,
		r.AddressCity, r.AddressCountry, r.AddressZip,
	)
	if err != nil {
		return "", fmt.Errorf("insert employee: %w", err)
	}
	return id, nil
}

// CountEmployees returns the number of stored employees.
func (s *Store) CountEmployees(ctx context.Context) (int, error) {
	var n int
	if err := s.queries.Get(ctx, "count-employees", &n); err != nil {
		return 0, fmt.Errorf("count employees: %w", err)
	}
	return n, nil
}

type savedFilterRow struct {
	FilterID  string `db:"filter_id"`
	Owner     string `db:"owner"`
	Name      string `db:"name"`
	Query     string `db:"query"`
	Target    string `db:"target"`
	CreatedAt string `db:"created_at"`
}

func (r *savedFilterRow) savedFilter() types.SavedFilter {
	f := types.SavedFilter{
		FilterID: types.FilterID(r.FilterID),
		Owner:    r.Owner,
		Name:     r.Name,
		Query:    r.Query,
		Target:   r.Target,
	}
	if t, err := time.Parse(time.RFC3339Nano, r.CreatedAt); err == nil {
		f.CreatedAt = t
	}
	return f
}

// SaveFilter stores query text under (owner, name). The caller validates
// the query; the store never compiles it. A taken name returns
// types.ErrFilterExists.
func (s *Store) SaveFilter(ctx context.Context, owner, name, query, target string) (*types.SavedFilter, error) {
	if name == "" || len(name) > types.MaxFilterNameLength {
		return nil, fmt.Errorf("%w: length must be between 1 and %d", types.ErrInvalidFilterName, types.MaxFilterNameLength)
	}

	f := &types.SavedFilter{
		FilterID:  types.NewFilterID(),
		Owner:     owner,
		Name:      name,
		Query:     query,
		Target:    target,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.queries.Exec(ctx, "insert-saved-filter",
		string(f.FilterID), f.Owner, f.Name, f.Query, f.Target, f.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", types.ErrFilterExists, name)
		}
		return nil, fmt.Errorf("save filter: %w", err)
	}
	return f, nil
}

// GetFilterByName returns the owner's filter called name, or
// types.ErrFilterNotFound.
func (s *Store) GetFilterByName(ctx context.Context, owner, name string) (*types.SavedFilter, error) {
	var row savedFilterRow
	err := s.queries.Get(ctx, "get-saved-filter-by-name", &row, owner, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", types.ErrFilterNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("get filter: %w", err)
	}
	f := row.savedFilter()
	return &f, nil
}

// ListFilters returns the owner's filters ordered by name.
func (s *Store) ListFilters(ctx context.Context, owner string) ([]types.SavedFilter, error) {
	var rows []savedFilterRow
	if err := s.queries.Select(ctx, "list-saved-filters", &rows, owner); err != nil {
		return nil, fmt.Errorf("list filters: %w", err)
	}
	out := make([]types.SavedFilter, len(rows))
	for i := range rows {
		out[i] = rows[i].savedFilter()
	}
	return out, nil
}

// DeleteFilter removes the owner's filter called name, or returns
// types.ErrFilterNotFound.
func (s *Store) DeleteFilter(ctx context.Context, owner, name string) error {
	res, err := s.queries.Exec(ctx, "delete-saved-filter", owner, name)
	if err != nil {
		return fmt.Errorf("delete filter: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete filter: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", types.ErrFilterNotFound, name)
	}
	return nil
}

type apiKeyRow struct {
	APIKeyID   string         `db:"api_key_id"`
	Owner      string         `db:"owner"`
	Name       string         `db:"name"`
	SecretID   string         `db:"secret_id"`
	KeyHash    string         `db:"key_hash"`
	CreatedAt  string         `db:"created_at"`
	LastUsedAt sql.NullString `db:"last_used_at"`
	RevokedAt  sql.NullString `db:"revoked_at"`
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil
	}
	return &t
}

// GetAPIKeyByHash returns the key whose HMAC is keyHash, or
// types.ErrAPIKeyNotFound.
func (s *Store) GetAPIKeyByHash(ctx context.Context, keyHash string) (*types.APIKey, error) {
	var row apiKeyRow
	err := s.queries.Get(ctx, "get-api-key-by-hash", &row, keyHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrAPIKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get api key: %w", err)
	}

	k := &types.APIKey{
		APIKeyID:   types.APIKeyID(row.APIKeyID),
		Owner:      row.Owner,
		Name:       row.Name,
		SecretID:   row.SecretID,
		KeyHash:    row.KeyHash,
		LastUsedAt: parseNullTime(row.LastUsedAt),
		RevokedAt:  parseNullTime(row.RevokedAt),
	}
	if t, err := time.Parse(time.RFC3339Nano, row.CreatedAt); err == nil {
		k.CreatedAt = t
	}
	return k, nil
}

// TouchAPIKey records a use of the key at the given time.
func (s *Store) TouchAPIKey(ctx context.Context, id types.APIKeyID, at time.Time) error {
	if _, err := s.queries.Exec(ctx, "update-last-used", at.UTC().Format(time.RFC3339Nano), string(id)); err != nil {
		return fmt.Errorf("touch api key: %w", err)
	}
	return nil
}

// InsertAPIKey stores a new key record.
func (s *Store) InsertAPIKey(ctx context.Context, k *types.APIKey) error {
	_, err := s.queries.Exec(ctx, "insert-api-key",
		string(k.APIKeyID), k.Owner, k.Name, k.SecretID, k.KeyHash, k.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert api key: %w", err)
	}
	return nil
}

// RevokeAPIKey marks the key revoked. Revoking twice is a no-op.
func (s *Store) RevokeAPIKey(ctx context.Context, id types.APIKeyID, at time.Time) error {
	if _, err := s.queries.Exec(ctx, "revoke-api-key", at.UTC().Format(time.RFC3339Nano), string(id)); err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	return nil
}

// isUniqueViolation matches unique constraint failures from either driver.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pgUniqueViolation
	}
	return false
}

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"
