package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/law-makers/leadharvest/pkg/models"
)

// FindBusiness looks a business up by identity key. found is false when no
// row matches.
func (s *Store) FindBusiness(ctx context.Context, key models.BusinessKey) (b models.Business, found bool, err error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, business_name, website, category, address, phone, city, keyword, created_at
FROM businesses
WHERE business_name = ? AND website = ? AND city = ?`,
		key.Name, strings.TrimSpace(key.Website), key.Location)

	err = row.Scan(&b.ID, &b.Name, &b.Website, &b.Category, &b.Address, &b.Phone, &b.Location, &b.Keyword, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Business{}, false, nil
	}
	if err != nil {
		return models.Business{}, false, fmt.Errorf("find business: %w", err)
	}
	return b, true, nil
}

// InsertBusiness stores b and returns its id. If a row with the same identity
// key already exists, its id is returned and nothing is written.
func (s *Store) InsertBusiness(ctx context.Context, b models.Business) (int64, error) {
	if strings.TrimSpace(b.Name) == "" {
		return 0, fmt.Errorf("insert business: name is required")
	}

	res, err := s.db.ExecContext(ctx, `
INSERT OR IGNORE INTO businesses (business_name, website, category, address, phone, city, keyword, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Name, strings.TrimSpace(b.Website), b.Category, b.Address, b.Phone, b.Location, b.Keyword, now())
	if err != nil {
		return 0, fmt.Errorf("insert business: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 1 {
		return res.LastInsertId()
	}

	existing, found, err := s.FindBusiness(ctx, b.Key())
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("insert business: row vanished after conflict")
	}
	return existing.ID, nil
}

// CountEmails returns how many emails are stored for a business
func (s *Store) CountEmails(ctx context.Context, businessID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM emails WHERE business_id = ?`, businessID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count emails: %w", err)
	}
	return n, nil
}

// InsertEmail stores e for businessID. It reports false when the pair was
// already present.
func (s *Store) InsertEmail(ctx context.Context, businessID int64, e models.Email) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
INSERT OR IGNORE INTO emails (business_id, email, source_page, created_at)
VALUES (?, ?, ?, ?)`,
		businessID, strings.ToLower(strings.TrimSpace(e.Email)), e.SourcePage, now())
	if err != nil {
		return false, fmt.Errorf("insert email: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Results returns the business x email join matching f, newest business first
func (s *Store) Results(ctx context.Context, f models.ResultFilter) ([]models.Lead, error) {
	query := `
SELECT DISTINCT b.business_name, b.website, e.email, e.source_page, b.city, b.category,
       b.keyword, b.address, b.phone, b.created_at
FROM businesses b
JOIN emails e ON e.business_id = b.id`

	var (
		where []string
		args  []interface{}
	)
	if kw := strings.TrimSpace(f.Keyword); kw != "" {
		where = append(where, "b.keyword = ?")
		args = append(args, kw)
	}
	if loc := strings.TrimSpace(f.Location); loc != "" {
		where = append(where, "b.city = ?")
		args = append(args, loc)
	}
	if len(where) > 0 {
		query += "\nWHERE " + strings.Join(where, " AND ")
	}
	query += "\nORDER BY b.created_at DESC, b.id DESC, e.email ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	leads := []models.Lead{}
	for rows.Next() {
		var l models.Lead
		if err := rows.Scan(&l.BusinessName, &l.Website, &l.Email, &l.EmailSourcePage, &l.City,
			&l.Category, &l.Keyword, &l.Address, &l.Phone, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

// Counts returns the number of stored businesses and emails
func (s *Store) Counts(ctx context.Context) (businesses, emails int, err error) {
	err = s.db.QueryRowContext(ctx, `
SELECT (SELECT COUNT(*) FROM businesses), (SELECT COUNT(*) FROM emails)`).Scan(&businesses, &emails)
	if err != nil {
		return 0, 0, fmt.Errorf("count rows: %w", err)
	}
	return businesses, emails, nil
}

// Reset deletes all emails, then all businesses
func (s *Store) Reset(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM emails`); err != nil {
		return fmt.Errorf("reset emails: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM businesses`); err != nil {
		return fmt.Errorf("reset businesses: %w", err)
	}
	return tx.Commit()
}

func now() time.Time {
	return time.Now().UTC()
}
