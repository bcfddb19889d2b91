package voting

import "sort"

// ComputeWinners returns the top contestants per position. Ties are not broken:
// every contestant sharing the highest count is a winner. Positions with no votes
// report all their contestants at zero.
func ComputeWinners(eventID string, contestants []Contestant) []Winner {
	byPosition := make(map[string][]Contestant)
	positions := make([]string, 0)
	for _, contestant := range contestants {
		if _, ok := byPosition[contestant.Position]; !ok {
			positions = append(positions, contestant.Position)
		}
		byPosition[contestant.Position] = append(byPosition[contestant.Position], contestant)
	}
	sort.Strings(positions)

	winners := make([]Winner, 0, len(positions))
	for _, position := range positions {
		group := byPosition[position]
		var top int64 = -1
		for _, contestant := range group {
			if contestant.VoteCount > top {
				top = contestant.VoteCount
			}
		}
		sort.Slice(group, func(i int, j int) bool { return group[i].ContestantID < group[j].ContestantID })
		for _, contestant := range group {
			if contestant.VoteCount != top {
				continue
			}
			winners = append(winners, Winner{
				EventID:      eventID,
				Position:     position,
				ContestantID: contestant.ContestantID,
				Name:         contestant.Name,
				Votes:        contestant.VoteCount,
			})
		}
	}
	return winners
}
