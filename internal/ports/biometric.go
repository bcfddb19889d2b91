package ports

import "context"

// BiometricOracle compares a reference identity token with a live photo and returns a
// confidence score in [0,100]. Implementations report failures with the biometric
// sentinel errors of the voting domain (ErrNoFaceDetected, ErrServiceBusy, ...).
type BiometricOracle interface {
	Compare(ctx context.Context, referenceToken string, livePhotoRef string) (float64, error)
}
