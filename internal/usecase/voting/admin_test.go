package voting

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "evote/internal/domain/voting"
	"evote/internal/ports"
)

func validEventInput() CreateEventInput {
	return CreateEventInput{
		Title:    "Faculty Reps",
		OpensAt:  testStart.Add(2 * time.Hour),
		ClosesAt: testStart.Add(4 * time.Hour),
		Fence:    domain.Fence{Lat: testFenceLat, Lng: testFenceLng, RadiusMeters: 800},
		Contestants: []ContestantInput{
			{ContestantID: "rep-1", Position: "Rep", Name: "Dayo"},
			{ContestantID: "rep-2", Position: "Rep", Name: "Efe"},
			{ContestantID: "tre-1", Position: "Treasurer", Name: "Funmi"},
		},
	}
}

func TestCreateEventStoresContestantsAndPositions(t *testing.T) {
	env := newTestEnv(t, newFakeOracle(oracleResponse{score: 90}))
	ctx := context.Background()

	view, err := env.svc.CreateEvent(ctx, validEventInput())
	if err != nil {
		t.Fatalf("CreateEvent() error = %v", err)
	}
	if view.EventID == "" {
		t.Fatalf("CreateEvent() event id is empty")
	}
	if view.Status != domain.EventStatusScheduled {
		t.Fatalf("CreateEvent() status = %s, want scheduled", view.Status)
	}
	if len(view.Positions) != 2 || view.Positions[0] != "Rep" || view.Positions[1] != "Treasurer" {
		t.Fatalf("CreateEvent() positions = %v", view.Positions)
	}

	contestants, err := env.store.repo.ListContestants(ctx, view.EventID)
	if err != nil {
		t.Fatalf("ListContestants() error = %v", err)
	}
	if len(contestants) != 3 {
		t.Fatalf("contestants = %d, want 3", len(contestants))
	}

	got, err := env.svc.GetEvent(ctx, view.EventID)
	if err != nil {
		t.Fatalf("GetEvent() error = %v", err)
	}
	if got.Title != "Faculty Reps" || got.Status != domain.EventStatusScheduled {
		t.Fatalf("GetEvent() = %+v", got)
	}

	env.clock.Set(testStart.Add(3 * time.Hour))
	got, err = env.svc.GetEvent(ctx, view.EventID)
	if err != nil {
		t.Fatalf("GetEvent() error = %v", err)
	}
	if got.Status != domain.EventStatusOpen {
		t.Fatalf("GetEvent() status = %s, want open", got.Status)
	}
}

func TestCreateEventValidation(t *testing.T) {
	type testCase struct {
		name   string
		mutate func(in *CreateEventInput)
	}

	cases := []testCase{
		{name: "missing title", mutate: func(in *CreateEventInput) { in.Title = " " }},
		{name: "closes before opens", mutate: func(in *CreateEventInput) { in.ClosesAt = in.OpensAt }},
		{name: "already ended", mutate: func(in *CreateEventInput) {
			in.OpensAt = testStart.Add(-4 * time.Hour)
			in.ClosesAt = testStart.Add(-2 * time.Hour)
		}},
		{name: "zero radius", mutate: func(in *CreateEventInput) { in.Fence.RadiusMeters = 0 }},
		{name: "bad fence center", mutate: func(in *CreateEventInput) { in.Fence.Lng = 200 }},
		{name: "no contestants", mutate: func(in *CreateEventInput) { in.Contestants = nil }},
		{name: "contestant without position", mutate: func(in *CreateEventInput) { in.Contestants[0].Position = "" }},
		{name: "duplicate contestant id", mutate: func(in *CreateEventInput) { in.Contestants[1].ContestantID = "rep-1" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, newFakeOracle(oracleResponse{score: 90}))
			in := validEventInput()
			tc.mutate(&in)

			_, err := env.svc.CreateEvent(context.Background(), in)
			if !errors.Is(err, domain.ErrInvalidEvent) {
				t.Fatalf("CreateEvent() error = %v, want ErrInvalidEvent", err)
			}
		})
	}
}

func TestCreateEventAllowsOffSiteWithoutFence(t *testing.T) {
	env := newTestEnv(t, newFakeOracle(oracleResponse{score: 90}))
	in := validEventInput()
	in.Fence = domain.Fence{OffSiteAllowed: true}

	if _, err := env.svc.CreateEvent(context.Background(), in); err != nil {
		t.Fatalf("CreateEvent() error = %v", err)
	}
}

func TestRegisterAndEnrollVoter(t *testing.T) {
	env := newTestEnv(t, newFakeOracle(oracleResponse{score: 90}))
	ctx := context.Background()

	if err := env.svc.RegisterVoter(ctx, ports.NewVoter{VoterID: "v-9", FullName: "Grace", Unit: "Science"}); err != nil {
		t.Fatalf("RegisterVoter() error = %v", err)
	}
	if err := env.svc.EnrollBiometric(ctx, "v-9", "ref-9"); err != nil {
		t.Fatalf("EnrollBiometric() error = %v", err)
	}
	voter, err := env.store.repo.GetVoter(ctx, "v-9")
	if err != nil {
		t.Fatalf("GetVoter() error = %v", err)
	}
	if voter.BiometricToken != "ref-9" {
		t.Fatalf("biometric token = %q, want ref-9", voter.BiometricToken)
	}

	if err := env.svc.EnrollBiometric(ctx, "v-unknown", "ref"); !errors.Is(err, domain.ErrVoterNotFound) {
		t.Fatalf("EnrollBiometric(unknown) error = %v, want ErrVoterNotFound", err)
	}
	if err := env.svc.RegisterVoter(ctx, ports.NewVoter{VoterID: "v-10"}); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("RegisterVoter(no name) error = %v, want ErrInvalidRequest", err)
	}
}

func TestGetResultsBeforePublication(t *testing.T) {
	env := newTestEnv(t, newFakeOracle(oracleResponse{score: 90}))
	env.seedEvent(t, domain.EligibilityFilter{})

	_, err := env.svc.GetResults(context.Background(), testEventID)
	if !errors.Is(err, domain.ErrResultsNotPublic) {
		t.Fatalf("GetResults() error = %v, want ErrResultsNotPublic", err)
	}
	if _, err := env.svc.GetResults(context.Background(), "evt-missing"); !errors.Is(err, domain.ErrEventNotFound) {
		t.Fatalf("GetResults(missing) error = %v, want ErrEventNotFound", err)
	}
}

func TestGetResultsFallsBackToStoreAndCaches(t *testing.T) {
	env := newTestEnv(t, newFakeOracle(oracleResponse{score: 90}))
	env.seedEvent(t, domain.EligibilityFilter{})
	ctx := context.Background()

	scheduler := newTestScheduler(env, nil)
	env.clock.Set(testStart.Add(3 * time.Hour))
	if _, err := scheduler.TickOnce(ctx); err != nil {
		t.Fatalf("TickOnce() error = %v", err)
	}
	if err := env.cache.Delete(ctx, resultsCacheKey(testEventID)); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	view, err := env.svc.GetResults(ctx, testEventID)
	if err != nil {
		t.Fatalf("GetResults() error = %v", err)
	}
	if len(view.Positions) != 2 {
		t.Fatalf("GetResults() positions = %+v", view.Positions)
	}
	// No votes were cast, so both presidential contestants tie at zero.
	if view.Positions[0].Position != testPresident || len(view.Positions[0].Winners) != 2 {
		t.Fatalf("president result = %+v, want two tied winners", view.Positions[0])
	}
	if _, ok := env.cache.data[resultsCacheKey(testEventID)]; !ok {
		t.Fatalf("results snapshot was not cached")
	}
}
