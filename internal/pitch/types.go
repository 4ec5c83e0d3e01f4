package pitch

import (
	"errors"
	"fmt"
	"time"
)

// Tone selects the writing voice of the generated pitch.
type Tone string

const (
	ToneProfessional Tone = "professional"
	ToneEnthusiastic Tone = "enthusiastic"
	ToneCasual       Tone = "casual"
)

// ParseTone validates a requested tone; empty input selects the default.
func ParseTone(raw string) (Tone, error) {
	switch Tone(raw) {
	case "":
		return ToneProfessional, nil
	case ToneProfessional, ToneEnthusiastic, ToneCasual:
		return Tone(raw), nil
	default:
		return "", fmt.Errorf("%w: tone must be one of professional, enthusiastic, casual", ErrInvalidInput)
	}
}

// Length selects the target size of the generated pitch.
type Length string

const (
	LengthShort  Length = "short"
	LengthMedium Length = "medium"
	LengthLong   Length = "long"
)

// ParseLength validates a requested length; empty input selects the default.
func ParseLength(raw string) (Length, error) {
	switch Length(raw) {
	case "":
		return LengthMedium, nil
	case LengthShort, LengthMedium, LengthLong:
		return Length(raw), nil
	default:
		return "", fmt.Errorf("%w: length must be one of short, medium, long", ErrInvalidInput)
	}
}

// MaxTokens maps the length to the completion token budget.
func (l Length) MaxTokens() int {
	switch l {
	case LengthShort:
		return 300
	case LengthLong:
		return 700
	default:
		return 500
	}
}

// wordTarget is the approximate word count named in the system prompt.
func (l Length) wordTarget() int {
	switch l {
	case LengthShort:
		return 100
	case LengthLong:
		return 300
	default:
		return 200
	}
}

var (
	ErrInvalidInput = errors.New("pitch: invalid input")
	ErrNotEntitled  = errors.New("pitch: no credits left")
)

// GenerationRecord is the audit copy of one pitch generation.
type GenerationRecord struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	LeadID      string    `json:"lead_id"`
	Pitch       string    `json:"pitch_content"`
	Tone        Tone      `json:"tone"`
	Length      Length    `json:"length"`
	TokensUsed  int       `json:"tokens_used"`
	CreditsUsed int64     `json:"credits_used"`
	RequestID   string    `json:"request_id"`
	CreatedAt   time.Time `json:"created_at"`
}
