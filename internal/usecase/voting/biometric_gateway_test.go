package voting

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "evote/internal/domain/voting"
	"evote/internal/errs"
)

func newTestGateway(oracle *fakeOracle) *BiometricGateway {
	return NewBiometricGateway(oracle, BiometricConfig{Threshold: 80, MaxAttempts: 3, BaseDelay: time.Millisecond}, nil)
}

func TestBiometricGatewayRetriesBusyThenSucceeds(t *testing.T) {
	oracle := newFakeOracle(
		oracleResponse{err: domain.ErrServiceBusy},
		oracleResponse{err: domain.ErrServiceBusy},
		oracleResponse{score: 91},
	)
	gateway := newTestGateway(oracle)

	got, err := gateway.Verify(context.Background(), "ref", "photo")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !got.Matched || got.Confidence != 91 || got.Attempts != 3 {
		t.Fatalf("Verify() = %+v", got)
	}
	if oracle.Calls() != 3 {
		t.Fatalf("oracle calls = %d, want 3", oracle.Calls())
	}
}

func TestBiometricGatewayGivesUpAfterMaxAttempts(t *testing.T) {
	oracle := newFakeOracle(oracleResponse{err: domain.ErrServiceBusy})
	gateway := newTestGateway(oracle)

	_, err := gateway.Verify(context.Background(), "ref", "photo")
	if !errors.Is(err, domain.ErrVerification) || !errors.Is(err, domain.ErrServiceBusy) {
		t.Fatalf("Verify() error = %v, want verification error wrapping busy", err)
	}
	if !errs.IsTransient(err) {
		t.Fatalf("Verify() error should be transient: %v", err)
	}
	if oracle.Calls() != 3 {
		t.Fatalf("oracle calls = %d, want 3", oracle.Calls())
	}
}

func TestBiometricGatewayDoesNotRetryTerminalErrors(t *testing.T) {
	type testCase struct {
		name string
		err  error
	}

	cases := []testCase{
		{name: "no face", err: domain.ErrNoFaceDetected},
		{name: "multiple faces", err: domain.ErrMultipleFacesDetected},
		{name: "unavailable", err: domain.ErrBiometricUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			oracle := newFakeOracle(oracleResponse{err: tc.err})
			gateway := newTestGateway(oracle)

			_, err := gateway.Verify(context.Background(), "ref", "photo")
			if !errors.Is(err, tc.err) || !errors.Is(err, domain.ErrVerification) {
				t.Fatalf("Verify() error = %v", err)
			}
			if domain.CodeOf(err) != domain.CodeVerificationError {
				t.Fatalf("CodeOf() = %s", domain.CodeOf(err))
			}
			if oracle.Calls() != 1 {
				t.Fatalf("oracle calls = %d, want 1", oracle.Calls())
			}
		})
	}
}

func TestBiometricGatewayThreshold(t *testing.T) {
	type testCase struct {
		score float64
		want  bool
	}

	cases := []testCase{
		{score: 0, want: false},
		{score: 79.99, want: false},
		{score: 80, want: true},
		{score: 100, want: true},
	}

	for _, tc := range cases {
		gateway := newTestGateway(newFakeOracle(oracleResponse{score: tc.score}))
		got, err := gateway.Verify(context.Background(), "ref", "photo")
		if err != nil {
			t.Fatalf("Verify(%v) error = %v", tc.score, err)
		}
		if got.Matched != tc.want {
			t.Fatalf("Verify(%v).Matched = %v, want %v", tc.score, got.Matched, tc.want)
		}
	}
}

func TestBiometricGatewayRejectsOutOfRangeScore(t *testing.T) {
	gateway := newTestGateway(newFakeOracle(oracleResponse{score: 140}))
	if _, err := gateway.Verify(context.Background(), "ref", "photo"); !errors.Is(err, domain.ErrVerification) {
		t.Fatalf("Verify() error = %v, want ErrVerification", err)
	}
}
