package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"leadsniper.app/internal/ids"
	"leadsniper.app/internal/lead"
)

// Leads implements lead.Store on PostgreSQL.
type Leads struct {
	db *sql.DB
}

var _ lead.Store = (*Leads)(nil)

func (s *Leads) Create(ctx context.Context, l lead.Lead) (lead.Lead, error) {
	if strings.TrimSpace(l.Title) == "" {
		return lead.Lead{}, lead.ErrInvalidInput
	}
	if strings.TrimSpace(l.ID) == "" {
		l.ID = ids.New()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	reqs, err := marshalList(l.Requirements)
	if err != nil {
		return lead.Lead{}, err
	}
	err = s.db.QueryRowContext(ctx, `
		insert into leads(id, title, company, location, requirements, description,
			budget, tier, status, ai_pitch_generated, created_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,false,$10)
		returning seq
	`, l.ID, l.Title, l.Company, l.Location, reqs, l.Description,
		l.Budget, l.Tier, l.Status, l.CreatedAt).Scan(&l.Sequence)
	if err != nil {
		return lead.Lead{}, fmt.Errorf("insert lead: %w", err)
	}
	return l, nil
}

func (s *Leads) Get(ctx context.Context, id string) (lead.Lead, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, seq, title, company, location, requirements, description,
			budget, tier, status, ai_pitch_generated, created_at
		from leads where id=$1
	`, id)
	l, err := scanLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return lead.Lead{}, lead.ErrNotFound
	}
	return l, err
}

func (s *Leads) List(ctx context.Context, limit int, afterSeq uint64) ([]lead.Lead, uint64, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, seq, title, company, location, requirements, description,
			budget, tier, status, ai_pitch_generated, created_at
		from leads where seq > $1 order by seq asc limit $2
	`, afterSeq, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var (
		res  []lead.Lead
		last uint64
	)
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, 0, err
		}
		res = append(res, l)
		last = l.Sequence
	}
	return res, last, rows.Err()
}

func (s *Leads) SetPitchGenerated(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `update leads set ai_pitch_generated = true where id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return lead.ErrNotFound
	}
	return nil
}

func scanLead(row rowScanner) (lead.Lead, error) {
	var (
		l    lead.Lead
		reqs []byte
	)
	err := row.Scan(&l.ID, &l.Sequence, &l.Title, &l.Company, &l.Location, &reqs,
		&l.Description, &l.Budget, &l.Tier, &l.Status, &l.PitchGenerated, &l.CreatedAt)
	if err != nil {
		return lead.Lead{}, err
	}
	if l.Requirements, err = unmarshalList(reqs); err != nil {
		return lead.Lead{}, err
	}
	return l, nil
}
