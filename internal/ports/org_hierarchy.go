package ports

import "context"

type Subunit struct {
	SubunitID string
	Unit      string
	Name      string
}

// OrgHierarchy is the read-only org lookup used by eligibility checks.
type OrgHierarchy interface {
	ResolveSubunitNames(ctx context.Context, subunitIDs []string) ([]string, error)
}

type OrgDirectory interface {
	OrgHierarchy
	UpsertSubunit(ctx context.Context, subunit Subunit) error
}
