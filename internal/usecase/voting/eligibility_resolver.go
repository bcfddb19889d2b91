package voting

import (
	"context"
	"errors"

	domain "evote/internal/domain/voting"
	"evote/internal/errs"
	"evote/internal/ports"
)

// EligibilityResolver decides whether a voter qualifies for an event. It only reads
// from the org hierarchy and never mutates state.
type EligibilityResolver struct {
	org ports.OrgHierarchy
}

func NewEligibilityResolver(org ports.OrgHierarchy) *EligibilityResolver {
	return &EligibilityResolver{org: org}
}

func (r *EligibilityResolver) IsEligible(ctx context.Context, voter domain.Voter, event domain.Event) (domain.Eligibility, error) {
	filter := event.Eligibility
	if filter.IsUnrestricted() {
		return domain.Eligibility{Eligible: true}, nil
	}

	var subunitNames map[string]struct{}
	if len(filter.SubunitIDs) > 0 {
		if r.org == nil {
			return domain.Eligibility{}, errors.New("org hierarchy lookup is required for sub-unit filters")
		}
		names, err := r.org.ResolveSubunitNames(ctx, filter.SubunitIDs)
		if err != nil {
			return domain.Eligibility{}, errs.Wrap(err, "resolve event sub-units")
		}
		subunitNames = domain.NormalizeSubunitNames(names)
	}

	return domain.EvaluateEligibility(voter, filter, subunitNames), nil
}
