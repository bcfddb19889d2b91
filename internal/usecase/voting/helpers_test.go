package voting

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	domain "evote/internal/domain/voting"
	"evote/internal/infrastructure/persistence/gormdb/model"
	"evote/internal/infrastructure/persistence/gormdb/repository"
	"evote/internal/infrastructure/persistence/gormdb/uow"
	"evote/internal/ports"
)

const (
	testEventID   = "evt-student-union"
	testFenceLat  = 7.8525
	testFenceLng  = 4.2811
	testRadiusM   = 5000
	testPresident = "President"
	testSecretary = "Secretary"
)

var testStart = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type testStore struct {
	db    *gorm.DB
	repo  *repository.VotingRepository
	uow   *uow.UnitOfWork
	org   *repository.OrgRepository
	audit *repository.AuditRepository
}

func setupStore(t *testing.T) *testStore {
	t.Helper()

	db, err := gorm.Open(gormsqlite.Open(filepath.Join(t.TempDir(), "evote.sqlite")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	if err := model.Migrate(context.Background(), db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	return &testStore{
		db:    db,
		repo:  repository.NewVotingRepository(db),
		uow:   uow.NewUnitOfWork(db),
		org:   repository.NewOrgRepository(db),
		audit: repository.NewAuditRepository(db),
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// fakeOracle answers Compare from a queue of scripted responses; the last entry repeats.
type fakeOracle struct {
	mu        sync.Mutex
	responses []oracleResponse
	calls     int
	onCall    func(call int)
}

type oracleResponse struct {
	score float64
	err   error
}

func newFakeOracle(responses ...oracleResponse) *fakeOracle {
	return &fakeOracle{responses: responses}
}

func (o *fakeOracle) Compare(_ context.Context, _ string, _ string) (float64, error) {
	o.mu.Lock()
	o.calls++
	call := o.calls
	idx := call - 1
	if idx >= len(o.responses) {
		idx = len(o.responses) - 1
	}
	resp := o.responses[idx]
	hook := o.onCall
	o.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	return resp.score, resp.err
}

func (o *fakeOracle) Calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}

type sentNotification struct {
	voter  ports.VoterContact
	event  ports.EventSummary
	result ports.ResultSummary
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	fail map[string]error
}

func (n *recordingNotifier) Notify(_ context.Context, voter ports.VoterContact, event ports.EventSummary, result ports.ResultSummary) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.fail[voter.VoterID]; err != nil {
		return err
	}
	n.sent = append(n.sent, sentNotification{voter: voter, event: event, result: result})
	return nil
}

func (n *recordingNotifier) countFor(voterID string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, s := range n.sent {
		if s.voter.VoterID == voterID {
			count++
		}
	}
	return count
}

type mapCache struct {
	mu   sync.Mutex
	data map[string]string
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string]string)}
}

func (c *mapCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, value string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *mapCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

type testEnv struct {
	store  *testStore
	clock  *fakeClock
	oracle *fakeOracle
	cache  *mapCache
	svc    *Service
}

func newTestEnv(t *testing.T, oracle *fakeOracle) *testEnv {
	t.Helper()

	store := setupStore(t)
	clock := newFakeClock(testStart.Add(time.Hour))
	cache := newMapCache()
	gateway := NewBiometricGateway(oracle, BiometricConfig{Threshold: 80, MaxAttempts: 3, BaseDelay: time.Millisecond}, nil)
	svc := NewService(Dependencies{
		Repo:    store.repo,
		UoW:     store.uow,
		Org:     store.org,
		Gateway: gateway,
		Audit:   store.audit,
		Cache:   cache,
		Clock:   clock,
	})
	return &testEnv{store: store, clock: clock, oracle: oracle, cache: cache, svc: svc}
}

// seedEvent stores an event open from testStart for two hours with two positions.
func (e *testEnv) seedEvent(t *testing.T, filter domain.EligibilityFilter) {
	t.Helper()

	event := domain.Event{
		EventID:     testEventID,
		Title:       "Student Union 2026",
		OpensAt:     testStart,
		ClosesAt:    testStart.Add(2 * time.Hour),
		Fence:       domain.Fence{Lat: testFenceLat, Lng: testFenceLng, RadiusMeters: testRadiusM},
		Eligibility: filter,
		Positions:   []string{testPresident, testSecretary},
		Status:      domain.EventStatusScheduled,
	}
	contestants := []ports.NewContestant{
		{ContestantID: "pres-a", Position: testPresident, Name: "Ada"},
		{ContestantID: "pres-b", Position: testPresident, Name: "Bola"},
		{ContestantID: "sec-a", Position: testSecretary, Name: "Chidi"},
	}
	if err := e.store.repo.CreateEvent(context.Background(), event, contestants); err != nil {
		t.Fatalf("CreateEvent() error = %v", err)
	}
}

func (e *testEnv) seedVoter(t *testing.T, voterID string, token string) {
	t.Helper()

	ctx := context.Background()
	if err := e.store.repo.CreateVoter(ctx, ports.NewVoter{
		VoterID:  voterID,
		FullName: "Voter " + voterID,
		Contact:  voterID + "@example.edu",
		Unit:     "Engineering",
		Subunit:  "Computer Science",
		Tier:     "300",
	}); err != nil {
		t.Fatalf("CreateVoter() error = %v", err)
	}
	if token != "" {
		if err := e.store.repo.SetBiometricToken(ctx, voterID, token); err != nil {
			t.Fatalf("SetBiometricToken() error = %v", err)
		}
	}
}

func floatPtr(v float64) *float64 {
	return &v
}

func voteInput(voterID string, choices ...domain.Choice) CastVoteInput {
	return CastVoteInput{
		VoterID:      voterID,
		EventID:      testEventID,
		Choices:      choices,
		LivePhotoRef: "photo://" + voterID,
		Lat:          floatPtr(testFenceLat),
		Lng:          floatPtr(testFenceLng),
		DeviceID:     "device-1",
	}
}

func president(contestantID string) domain.Choice {
	return domain.Choice{Position: testPresident, ContestantID: contestantID}
}

func secretary(contestantID string) domain.Choice {
	return domain.Choice{Position: testSecretary, ContestantID: contestantID}
}

func countBallots(t *testing.T, store *testStore, filter ports.BallotFilter) int64 {
	t.Helper()
	n, err := store.repo.CountBallots(context.Background(), filter)
	if err != nil {
		t.Fatalf("CountBallots() error = %v", err)
	}
	return n
}

func voteCount(t *testing.T, store *testStore, contestantID string) int64 {
	t.Helper()
	contestants, err := store.repo.ListContestants(context.Background(), testEventID)
	if err != nil {
		t.Fatalf("ListContestants() error = %v", err)
	}
	for _, c := range contestants {
		if c.ContestantID == contestantID {
			return c.VoteCount
		}
	}
	t.Fatalf("contestant %s not found", contestantID)
	return 0
}
