package brackets

import (
	"context"
	"fmt"
	"math/bits"
	"sort"
)

type node struct {
	participantID    *int
	seed             int
	sourceMatchUID   *string
	isByePlaceholder bool
}

// SingleEliminationGenerator builds a seeded knockout bracket. Round-1
// matches are only created for slot pairs holding two teams; a team drawn
// against a bye is carried straight into its round-2 slot. Every match of
// rounds 2+ is created up front, with nil team slots for winners still to come.
type SingleEliminationGenerator struct{}

func NewSingleEliminationGenerator() BracketGenerator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) GetName() string {
	return "SingleElimination"
}

func (g *SingleEliminationGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error) {
	entries := params.Entries
	n := len(entries)
	if n < 2 {
		return nil, fmt.Errorf("single elimination: %w (found %d)", ErrNotEnoughEntries, n)
	}

	size := NextPowerOfTwo(n)
	numRounds := TotalRounds(size)

	currentRoundNodes := make([]*node, size)
	for slot, seedIdx := range SeedOrder(size) {
		if seedIdx >= n {
			currentRoundNodes[slot] = &node{isByePlaceholder: true}
			continue
		}
		teamID := entries[seedIdx].TeamID
		currentRoundNodes[slot] = &node{participantID: &teamID, seed: seedIdx + 1}
	}

	allGeneratedMatches := make([]*BracketMatch, 0, size-1)

	for r := 1; r <= numRounds; r++ {
		nextRoundNodes := make([]*node, 0, len(currentRoundNodes)/2)

		for i := 0; i < len(currentRoundNodes); i += 2 {
			node1, node2 := currentRoundNodes[i], currentRoundNodes[i+1]
			position := i/2 + 1

			// Bye: no match, the team moves on to the next round.
			if node1.isByePlaceholder || node2.isByePlaceholder {
				switch {
				case node1.isByePlaceholder && node2.isByePlaceholder:
					nextRoundNodes = append(nextRoundNodes, &node{isByePlaceholder: true})
				case node1.isByePlaceholder:
					nextRoundNodes = append(nextRoundNodes, node2)
				default:
					nextRoundNodes = append(nextRoundNodes, node1)
				}
				continue
			}

			uid := fmt.Sprintf("R%dM%d", r, position)
			bm := &BracketMatch{
				UID:          uid,
				Round:        r,
				OrderInRound: position,
				RoundName:    RoundName(r, numRounds),
			}
			if node1.participantID != nil {
				bm.HomeTeamID = node1.participantID
				bm.HomeSeed = node1.seed
			} else {
				bm.SourceMatch1UID = node1.sourceMatchUID
				bm.IsPlaceholder = true
			}
			if node2.participantID != nil {
				bm.AwayTeamID = node2.participantID
				bm.AwaySeed = node2.seed
			} else {
				bm.SourceMatch2UID = node2.sourceMatchUID
				bm.IsPlaceholder = true
			}

			allGeneratedMatches = append(allGeneratedMatches, bm)
			nextRoundNodes = append(nextRoundNodes, &node{sourceMatchUID: &uid})
		}
		currentRoundNodes = nextRoundNodes
	}

	sort.Slice(allGeneratedMatches, func(i, j int) bool {
		if allGeneratedMatches[i].Round != allGeneratedMatches[j].Round {
			return allGeneratedMatches[i].Round < allGeneratedMatches[j].Round
		}
		return allGeneratedMatches[i].OrderInRound < allGeneratedMatches[j].OrderInRound
	})

	return allGeneratedMatches, nil
}

// TotalRounds returns the number of knockout rounds for a bracket of size slots.
func TotalRounds(size int) int {
	if size < 2 {
		return 0
	}
	return bits.Len(uint(NextPowerOfTwo(size))) - 1
}
