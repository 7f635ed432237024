package brackets

import (
	"context"
	"errors"

	"github.com/PR-botsAI/VolleyCoachAI-sub000/models"
)

var ErrNotEnoughEntries = errors.New("not enough teams to generate matches (minimum 2)")

// Entry is one team handed to a generator. For elimination brackets entries
// are ordered by seed, first entry being seed 1.
type Entry struct {
	TeamID int
	Pool   string
}

type GenerateBracketParams struct {
	Tournament *models.Tournament
	Entries    []Entry
}

// BracketMatch is a generated match before it is persisted.
type BracketMatch struct {
	UID          string
	Round        int // 0 for pool-phase matches
	OrderInRound int
	RoundName    string
	Pool         string

	HomeTeamID *int
	AwayTeamID *int
	HomeSeed   int // 0 while the slot is still to be decided
	AwaySeed   int

	SourceMatch1UID *string
	SourceMatch2UID *string

	IsPlaceholder bool
}

type BracketGenerator interface {
	GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error)

	GetName() string
}
