package lead

import (
	"errors"
	"time"
)

// Lead is a scraped job opportunity. The pitch generator reads its free-text
// fields as prompt material; the dashboard lists them.
type Lead struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Company        string    `json:"company"`
	Location       string    `json:"location"`
	Requirements   []string  `json:"requirements,omitempty"`
	Description    string    `json:"description,omitempty"`
	Budget         int64     `json:"budget,omitempty"`
	Tier           string    `json:"tier,omitempty"` // S/A/B/C scout ranking
	Status         string    `json:"status,omitempty"`
	PitchGenerated bool      `json:"ai_pitch_generated"`
	CreatedAt      time.Time `json:"created_at"`
	Sequence       uint64    `json:"sequence"`
}

var (
	ErrNotFound     = errors.New("lead: not found")
	ErrInvalidInput = errors.New("lead: invalid input")
)
