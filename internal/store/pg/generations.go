package pg

import (
	"context"
	"fmt"

	"leadsniper.app/internal/pitch"
)

var _ pitch.Recorder = (*Store)(nil)

// AppendGeneration persists the audit copy of one pitch generation.
func (s *Store) AppendGeneration(ctx context.Context, rec pitch.GenerationRecord) error {
	_, err := s.db.ExecContext(ctx, `
		insert into pitch_generations(id, user_id, lead_id, pitch_content, tone,
			length, tokens_used, credits_used, request_id, created_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, rec.ID, rec.UserID, rec.LeadID, rec.Pitch, string(rec.Tone),
		string(rec.Length), rec.TokensUsed, rec.CreditsUsed, rec.RequestID, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert pitch generation: %w", err)
	}
	return nil
}
