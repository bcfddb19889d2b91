package voting

import "strings"

const (
	EligibilityDimensionUnit    = "unit"
	EligibilityDimensionSubunit = "subunit"
	EligibilityDimensionTier    = "tier"
)

type Eligibility struct {
	Eligible bool
	Reason   string
}

// EvaluateEligibility applies unit, sub-unit and tier filters. subunitNames holds the
// canonical names the filter's SubunitIDs resolved to; it is ignored when the filter has none.
// Values are compared exactly after trimming surrounding spaces.
func EvaluateEligibility(voter Voter, filter EligibilityFilter, subunitNames map[string]struct{}) Eligibility {
	if unit := strings.TrimSpace(filter.Unit); unit != "" && unit != strings.TrimSpace(voter.Unit) {
		return Eligibility{Reason: EligibilityDimensionUnit + ": voter unit " + quoteOrNone(voter.Unit) + " is not " + unit}
	}

	if len(filter.SubunitIDs) > 0 {
		if _, ok := subunitNames[normalizeName(voter.Subunit)]; !ok {
			return Eligibility{Reason: EligibilityDimensionSubunit + ": voter sub-unit " + quoteOrNone(voter.Subunit) + " is not eligible"}
		}
	}

	if len(filter.Tiers) > 0 && !containsTrimmed(filter.Tiers, voter.Tier) {
		return Eligibility{Reason: EligibilityDimensionTier + ": voter tier " + quoteOrNone(voter.Tier) + " is not eligible"}
	}

	return Eligibility{Eligible: true}
}

// NormalizeSubunitNames builds the lookup set used by EvaluateEligibility.
func NormalizeSubunitNames(names []string) map[string]struct{} {
	out := make(map[string]struct{}, len(names))
	for _, name := range names {
		normalized := normalizeName(name)
		if normalized == "" {
			continue
		}
		out[normalized] = struct{}{}
	}
	return out
}

func normalizeName(name string) string {
	return strings.TrimSpace(name)
}

func containsTrimmed(values []string, target string) bool {
	target = strings.TrimSpace(target)
	if target == "" {
		return false
	}
	for _, value := range values {
		if strings.TrimSpace(value) == target {
			return true
		}
	}
	return false
}

func quoteOrNone(value string) string {
	if strings.TrimSpace(value) == "" {
		return "<none>"
	}
	return `"` + value + `"`
}
