package voting

import "errors"

var (
	ErrInvalidRequest     = errors.New("invalid vote request")
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	ErrEventNotFound      = errors.New("voting event not found")
	ErrVoterNotFound      = errors.New("voter not found")
	ErrEventNotOpen       = errors.New("voting event is not open")
	ErrAlreadyVoted       = errors.New("voter already voted in this event")
	ErrIneligible         = errors.New("voter is not eligible for this event")
	ErrOutsideFence       = errors.New("voter is outside the event geofence")
	ErrNoBiometricRef     = errors.New("voter has no registered biometric reference")
	ErrFaceMismatch       = errors.New("face verification failed")
	ErrVerification       = errors.New("biometric verification error")
	ErrVoteFailed         = errors.New("vote failed")

	ErrNoFaceDetected        = errors.New("no face detected")
	ErrMultipleFacesDetected = errors.New("multiple faces detected")
	ErrServiceBusy           = errors.New("biometric service busy")
	ErrBiometricUnavailable  = errors.New("biometric service unavailable")

	ErrDuplicateBallot    = errors.New("valid ballot already exists for voter position")
	ErrInvalidEvent       = errors.New("invalid voting event")
	ErrResultsNotPublic   = errors.New("event results are not public yet")
	ErrSchedulerSuspended = errors.New("scheduler suspended after consecutive failures")
)

// Code is the machine-readable rejection code returned to callers.
type Code string

const (
	CodeOK                     Code = "OK"
	CodeInvalidRequest         Code = "INVALID_REQUEST"
	CodeEventNotFound          Code = "EVENT_NOT_FOUND"
	CodeVoterNotFound          Code = "VOTER_NOT_FOUND"
	CodeEventNotOpen           Code = "EVENT_NOT_OPEN"
	CodeAlreadyVoted           Code = "ALREADY_VOTED"
	CodeIneligible             Code = "INELIGIBLE"
	CodeGeofenceViolation      Code = "GEOFENCE_VIOLATION"
	CodeNoRegisteredBiometric  Code = "NO_REGISTERED_BIOMETRIC"
	CodeFaceVerificationFailed Code = "FACE_VERIFICATION_FAILED"
	CodeVerificationError      Code = "VERIFICATION_ERROR"
	CodeVoteFailed             Code = "VOTE_FAILED"
	CodeResultsNotPublic       Code = "RESULTS_NOT_PUBLIC"
	CodeInvalidEvent           Code = "INVALID_EVENT"
)

var codeTable = []struct {
	err  error
	code Code
}{
	{ErrInvalidRequest, CodeInvalidRequest},
	{ErrInvalidCoordinates, CodeInvalidRequest},
	{ErrEventNotFound, CodeEventNotFound},
	{ErrVoterNotFound, CodeVoterNotFound},
	{ErrEventNotOpen, CodeEventNotOpen},
	{ErrAlreadyVoted, CodeAlreadyVoted},
	{ErrDuplicateBallot, CodeAlreadyVoted},
	{ErrIneligible, CodeIneligible},
	{ErrOutsideFence, CodeGeofenceViolation},
	{ErrNoBiometricRef, CodeNoRegisteredBiometric},
	{ErrFaceMismatch, CodeFaceVerificationFailed},
	{ErrVerification, CodeVerificationError},
	{ErrResultsNotPublic, CodeResultsNotPublic},
	{ErrInvalidEvent, CodeInvalidEvent},
}

// CodeOf maps an error chain to its rejection code. Unknown errors are VOTE_FAILED.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	for _, entry := range codeTable {
		if errors.Is(err, entry.err) {
			return entry.code
		}
	}
	return CodeVoteFailed
}

// IsPolicyRejection reports rejections decided by event, voter or location rules
// rather than by identity verification or a store failure.
func IsPolicyRejection(code Code) bool {
	switch code {
	case CodeEventNotOpen, CodeAlreadyVoted, CodeIneligible, CodeGeofenceViolation, CodeNoRegisteredBiometric:
		return true
	default:
		return false
	}
}
