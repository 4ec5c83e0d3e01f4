package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"leadsniper.app/internal/ids"
	"leadsniper.app/internal/profile"
)

// Profiles implements profile.Store on PostgreSQL.
type Profiles struct {
	db *sql.DB
}

var _ profile.Store = (*Profiles)(nil)

func (s *Profiles) Create(ctx context.Context, p profile.Profile) (profile.Profile, error) {
	if p.Credits < 0 {
		return profile.Profile{}, profile.ErrInvalidCredits
	}
	if strings.TrimSpace(p.ID) == "" {
		p.ID = ids.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	skills, err := marshalList(p.Skills)
	if err != nil {
		return profile.Profile{}, err
	}
	_, err = s.db.ExecContext(ctx, `
		insert into profiles(id, email, full_name, skills, is_pro, credits, created_at)
		values ($1,$2,$3,$4,$5,$6,$7)
	`, p.ID, p.Email, p.FullName, skills, p.Pro, p.Credits, p.CreatedAt)
	if err != nil {
		return profile.Profile{}, fmt.Errorf("insert profile: %w", err)
	}
	return p, nil
}

func (s *Profiles) Get(ctx context.Context, id string) (profile.Profile, error) {
	var (
		p      profile.Profile
		skills []byte
	)
	err := s.db.QueryRowContext(ctx, `
		select id, email, full_name, skills, is_pro, credits, created_at
		from profiles where id=$1
	`, id).Scan(&p.ID, &p.Email, &p.FullName, &skills, &p.Pro, &p.Credits, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return profile.Profile{}, profile.ErrNotFound
	}
	if err != nil {
		return profile.Profile{}, err
	}
	if p.Skills, err = unmarshalList(skills); err != nil {
		return profile.Profile{}, err
	}
	return p, nil
}

// ConditionalDecrement relies on the database's atomic conditional update:
// the row only changes when the stored balance still matches expected and
// the result stays non-negative.
func (s *Profiles) ConditionalDecrement(ctx context.Context, id string, expected, delta int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		update profiles
		set credits = credits - $3
		where id = $1 and credits = $2 and credits - $3 >= 0
	`, id, expected, delta)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Profiles) ResetFreeCredits(ctx context.Context, amount int64) (int64, error) {
	if amount < 0 {
		return 0, profile.ErrInvalidCredits
	}
	res, err := s.db.ExecContext(ctx, `update profiles set credits = $1 where is_pro = false`, amount)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
