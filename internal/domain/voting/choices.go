package voting

import (
	"fmt"
	"strings"
)

// ValidateChoices checks that every choice names a contestant of the event for the
// stated position and that no position is chosen twice. It returns the normalized choices.
func ValidateChoices(choices []Choice, contestants []Contestant) ([]Choice, error) {
	if len(choices) == 0 {
		return nil, fmt.Errorf("%w: at least one choice is required", ErrInvalidRequest)
	}

	byID := make(map[string]Contestant, len(contestants))
	for _, contestant := range contestants {
		byID[contestant.ContestantID] = contestant
	}

	seen := make(map[string]struct{}, len(choices))
	out := make([]Choice, 0, len(choices))
	for _, choice := range choices {
		position := strings.TrimSpace(choice.Position)
		contestantID := strings.TrimSpace(choice.ContestantID)
		if position == "" || contestantID == "" {
			return nil, fmt.Errorf("%w: choice requires position and contestant_id", ErrInvalidRequest)
		}
		if _, dup := seen[position]; dup {
			return nil, fmt.Errorf("%w: position %q chosen more than once", ErrInvalidRequest, position)
		}
		contestant, ok := byID[contestantID]
		if !ok {
			return nil, fmt.Errorf("%w: unknown contestant %q", ErrInvalidRequest, contestantID)
		}
		if contestant.Position != position {
			return nil, fmt.Errorf("%w: contestant %q does not run for %q", ErrInvalidRequest, contestantID, position)
		}
		seen[position] = struct{}{}
		out = append(out, Choice{Position: position, ContestantID: contestantID})
	}
	return out, nil
}
