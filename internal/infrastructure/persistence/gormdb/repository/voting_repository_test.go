package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"evote/internal/domain/voting"
	"evote/internal/infrastructure/persistence/gormdb/model"
	"evote/internal/infrastructure/persistence/gormdb/uow"
	"evote/internal/ports"
)

var repoTestTime = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(gormsqlite.Open(filepath.Join(t.TempDir(), "repo.sqlite")), &gorm.Config{})
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
	return db
}

func seedRepoEvent(t *testing.T, repo *VotingRepository) {
	t.Helper()

	event := voting.Event{
		EventID:  "evt-1",
		Title:    "Hall Elections",
		OpensAt:  repoTestTime,
		ClosesAt: repoTestTime.Add(time.Hour),
		Fence:    voting.Fence{Lat: 6.5, Lng: 3.4, RadiusMeters: 250},
		Eligibility: voting.EligibilityFilter{
			Unit:       "Science",
			SubunitIDs: []string{"sub-phy", "sub-chm"},
			Tiers:      []string{"100", "200"},
		},
		Positions: []string{"Chair"},
		Status:    voting.EventStatusScheduled,
	}
	contestants := []ports.NewContestant{
		{ContestantID: "c-1", Position: "Chair", Name: "Ife"},
		{ContestantID: "c-2", Position: "Chair", Name: "Jide"},
	}
	if err := repo.CreateEvent(context.Background(), event, contestants); err != nil {
		t.Fatalf("CreateEvent() error = %v", err)
	}
}

func validBallot(id string, voterID string, contestantID string) voting.Ballot {
	return voting.Ballot{
		BallotID:     id,
		VoterID:      voterID,
		EventID:      "evt-1",
		Position:     "Chair",
		ContestantID: contestantID,
		Lat:          6.5,
		Lng:          3.4,
		Confidence:   91,
		Status:       voting.BallotStatusValid,
		CreatedAt:    repoTestTime,
	}
}

func TestCreateEventRoundTrip(t *testing.T) {
	repo := NewVotingRepository(setupDB(t))
	seedRepoEvent(t, repo)

	got, err := repo.GetEvent(context.Background(), "evt-1")
	if err != nil {
		t.Fatalf("GetEvent() error = %v", err)
	}
	if got.Title != "Hall Elections" || got.Fence.RadiusMeters != 250 {
		t.Fatalf("GetEvent() = %+v", got)
	}
	if got.Eligibility.Unit != "Science" || len(got.Eligibility.SubunitIDs) != 2 || len(got.Eligibility.Tiers) != 2 {
		t.Fatalf("eligibility = %+v", got.Eligibility)
	}
	if !got.OpensAt.Equal(repoTestTime) || !got.ClosesAt.Equal(repoTestTime.Add(time.Hour)) {
		t.Fatalf("window = %v - %v", got.OpensAt, got.ClosesAt)
	}

	if _, err := repo.GetEvent(context.Background(), "evt-missing"); !errors.Is(err, voting.ErrEventNotFound) {
		t.Fatalf("GetEvent(missing) error = %v, want ErrEventNotFound", err)
	}
}

func TestInsertBallotsRejectsSecondValidChoice(t *testing.T) {
	repo := NewVotingRepository(setupDB(t))
	seedRepoEvent(t, repo)
	ctx := context.Background()

	if err := repo.InsertBallots(ctx, []voting.Ballot{validBallot("b-1", "v-1", "c-1")}); err != nil {
		t.Fatalf("InsertBallots() error = %v", err)
	}
	err := repo.InsertBallots(ctx, []voting.Ballot{validBallot("b-2", "v-1", "c-2")})
	if !errors.Is(err, voting.ErrDuplicateBallot) {
		t.Fatalf("InsertBallots(second valid) error = %v, want ErrDuplicateBallot", err)
	}

	dup := validBallot("b-3", "v-1", "c-2")
	dup.Status = voting.BallotStatusDuplicate
	rejected := validBallot("b-4", "v-1", "")
	rejected.Position = ""
	rejected.Status = voting.BallotStatusRejected
	if err := repo.InsertBallots(ctx, []voting.Ballot{dup, rejected}); err != nil {
		t.Fatalf("InsertBallots(non-valid rows) error = %v", err)
	}

	total, err := repo.CountBallots(ctx, ports.BallotFilter{VoterID: "v-1"})
	if err != nil {
		t.Fatalf("CountBallots() error = %v", err)
	}
	if total != 3 {
		t.Fatalf("CountBallots() = %d, want 3", total)
	}

	ballots, err := repo.ListBallots(ctx, ports.BallotFilter{Status: voting.BallotStatusRejected})
	if err != nil {
		t.Fatalf("ListBallots() error = %v", err)
	}
	if len(ballots) != 1 || ballots[0].ContestantID != "" {
		t.Fatalf("rejected ballots = %+v", ballots)
	}
}

func TestAddParticipationIsOncePerEvent(t *testing.T) {
	db := setupDB(t)
	repo := NewVotingRepository(db)
	ctx := context.Background()
	if err := repo.CreateVoter(ctx, ports.NewVoter{VoterID: "v-1", FullName: "Kemi"}); err != nil {
		t.Fatalf("CreateVoter() error = %v", err)
	}

	if err := repo.AddParticipation(ctx, "v-1", "evt-1", repoTestTime); err != nil {
		t.Fatalf("AddParticipation() error = %v", err)
	}
	if err := repo.AddParticipation(ctx, "v-1", "evt-1", repoTestTime); !errors.Is(err, voting.ErrDuplicateBallot) {
		t.Fatalf("AddParticipation(second) error = %v, want ErrDuplicateBallot", err)
	}

	voted, err := repo.HasParticipated(ctx, "v-1", "evt-1")
	if err != nil || !voted {
		t.Fatalf("HasParticipated() = %v, %v", voted, err)
	}
	voter, err := repo.GetVoter(ctx, "v-1")
	if err != nil {
		t.Fatalf("GetVoter() error = %v", err)
	}
	if len(voter.VotedEvents) != 1 {
		t.Fatalf("voted events = %v", voter.VotedEvents)
	}
}

func TestTransactionRollsBackEveryWrite(t *testing.T) {
	db := setupDB(t)
	repo := NewVotingRepository(db)
	unit := uow.NewUnitOfWork(db)
	seedRepoEvent(t, repo)
	ctx := context.Background()
	if err := repo.CreateVoter(ctx, ports.NewVoter{VoterID: "v-1", FullName: "Kemi"}); err != nil {
		t.Fatalf("CreateVoter() error = %v", err)
	}

	boom := errors.New("boom")
	err := unit.WithTx(ctx, func(txCtx context.Context) error {
		if err := repo.InsertBallots(txCtx, []voting.Ballot{validBallot("b-1", "v-1", "c-1")}); err != nil {
			return err
		}
		if err := repo.IncrementVotes(txCtx, "c-1", 1); err != nil {
			return err
		}
		if err := repo.AddParticipation(txCtx, "v-1", "evt-1", repoTestTime); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx() error = %v, want boom", err)
	}

	if n, _ := repo.CountBallots(ctx, ports.BallotFilter{}); n != 0 {
		t.Fatalf("ballots after rollback = %d", n)
	}
	voted, err := repo.HasParticipated(ctx, "v-1", "evt-1")
	if err != nil || voted {
		t.Fatalf("HasParticipated() after rollback = %v, %v", voted, err)
	}
	contestants, err := repo.ListContestants(ctx, "evt-1")
	if err != nil {
		t.Fatalf("ListContestants() error = %v", err)
	}
	for _, c := range contestants {
		if c.VoteCount != 0 {
			t.Fatalf("contestant %s votes = %d after rollback", c.ContestantID, c.VoteCount)
		}
	}
}

func TestMarkClosedOnlyOnce(t *testing.T) {
	repo := NewVotingRepository(setupDB(t))
	seedRepoEvent(t, repo)
	ctx := context.Background()
	now := repoTestTime.Add(2 * time.Hour)

	due, err := repo.ListDueForClosing(ctx, now, 10)
	if err != nil {
		t.Fatalf("ListDueForClosing() error = %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("ListDueForClosing() = %d events, want 1", len(due))
	}

	changed, err := repo.MarkClosed(ctx, "evt-1", now)
	if err != nil || !changed {
		t.Fatalf("MarkClosed() = %v, %v", changed, err)
	}
	changed, err = repo.MarkClosed(ctx, "evt-1", now)
	if err != nil || changed {
		t.Fatalf("MarkClosed(second) = %v, %v, want false", changed, err)
	}

	due, err = repo.ListDueForClosing(ctx, now, 10)
	if err != nil {
		t.Fatalf("ListDueForClosing() error = %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("ListDueForClosing() after close = %d events, want 0", len(due))
	}
}

func TestSaveResultsAndListValidVoters(t *testing.T) {
	repo := NewVotingRepository(setupDB(t))
	seedRepoEvent(t, repo)
	ctx := context.Background()

	ballots := []voting.Ballot{
		validBallot("b-1", "v-2", "c-1"),
		validBallot("b-2", "v-1", "c-2"),
	}
	dup := validBallot("b-3", "v-3", "c-2")
	dup.Status = voting.BallotStatusDuplicate
	ballots = append(ballots, dup)
	if err := repo.InsertBallots(ctx, ballots); err != nil {
		t.Fatalf("InsertBallots() error = %v", err)
	}

	ids, err := repo.ListValidVoterIDs(ctx, "evt-1")
	if err != nil {
		t.Fatalf("ListValidVoterIDs() error = %v", err)
	}
	if len(ids) != 2 || ids[0] != "v-1" || ids[1] != "v-2" {
		t.Fatalf("ListValidVoterIDs() = %v, want [v-1 v-2]", ids)
	}

	winners := []voting.Winner{
		{EventID: "evt-1", Position: "Chair", ContestantID: "c-1", Name: "Ife", Votes: 1},
		{EventID: "evt-1", Position: "Chair", ContestantID: "c-2", Name: "Jide", Votes: 1},
	}
	if err := repo.SaveResults(ctx, winners); err != nil {
		t.Fatalf("SaveResults() error = %v", err)
	}
	if err := repo.SaveResults(ctx, winners); err != nil {
		t.Fatalf("SaveResults(again) error = %v", err)
	}
	got, err := repo.ListResults(ctx, "evt-1")
	if err != nil {
		t.Fatalf("ListResults() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListResults() = %+v, want 2 tied winners", got)
	}
}

func TestOrgRepositoryResolvesNames(t *testing.T) {
	org := NewOrgRepository(setupDB(t))
	ctx := context.Background()

	for _, subunit := range []ports.Subunit{
		{SubunitID: "sub-phy", Unit: "Science", Name: "Physics"},
		{SubunitID: "sub-chm", Unit: "Science", Name: "Chemistry"},
		{SubunitID: "sub-phy", Unit: "Science", Name: "Applied Physics"},
	} {
		if err := org.UpsertSubunit(ctx, subunit); err != nil {
			t.Fatalf("UpsertSubunit() error = %v", err)
		}
	}

	names, err := org.ResolveSubunitNames(ctx, []string{"sub-phy", "sub-chm", "sub-none"})
	if err != nil {
		t.Fatalf("ResolveSubunitNames() error = %v", err)
	}
	if len(names) != 2 || names[0] != "Applied Physics" || names[1] != "Chemistry" {
		t.Fatalf("ResolveSubunitNames() = %v", names)
	}
}

func TestAuditRepositoryRecordsAttempts(t *testing.T) {
	audit := NewAuditRepository(setupDB(t))
	ctx := context.Background()
	confidence := 42.0

	if err := audit.RecordAttempt(ctx, ports.VoteAttempt{
		VoterID:     "v-1",
		EventID:     "evt-1",
		Code:        string(voting.CodeFaceVerificationFailed),
		Confidence:  &confidence,
		AttemptedAt: repoTestTime,
	}); err != nil {
		t.Fatalf("RecordAttempt() error = %v", err)
	}

	attempts, err := audit.ListAttempts(ctx, "v-1", "evt-1")
	if err != nil {
		t.Fatalf("ListAttempts() error = %v", err)
	}
	if len(attempts) != 1 || attempts[0].Confidence == nil || *attempts[0].Confidence != 42 {
		t.Fatalf("ListAttempts() = %+v", attempts)
	}
}

func TestLockEventReadsInsideTransaction(t *testing.T) {
	db := setupDB(t)
	repo := NewVotingRepository(db)
	seedRepoEvent(t, repo)
	ctx := context.Background()

	err := uow.NewUnitOfWork(db).WithTx(ctx, func(txCtx context.Context) error {
		if _, err := repo.MarkClosed(txCtx, "evt-1", repoTestTime.Add(time.Hour)); err != nil {
			return err
		}
		event, err := repo.LockEvent(txCtx, "evt-1")
		if err != nil {
			return err
		}
		if event.Status != voting.EventStatusClosed {
			t.Fatalf("LockEvent() status = %s, want closed", event.Status)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTx() error = %v", err)
	}

	if _, err := repo.LockEvent(ctx, "evt-missing"); !errors.Is(err, voting.ErrEventNotFound) {
		t.Fatalf("LockEvent(missing) error = %v, want ErrEventNotFound", err)
	}
}
