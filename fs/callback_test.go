package fs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeAcceptsRecognizedResult(t *testing.T) {
	require.Equal(t, ResultSkip, Normalize(ReasonFileNameExists, ResultSkip))
	require.Equal(t, ResultOverwrite, Normalize(ReasonFileNameExists, ResultOverwrite))
}

func TestNormalizeFallsBackToCancelOnUnrecognizedResult(t *testing.T) {
	// ReasonPathTooLong doesn't recognize ResultOverwrite.
	require.Equal(t, ResultCancel, Normalize(ReasonPathTooLong, ResultOverwrite))
}

func TestNormalizeUnknownReasonDefaultsToCancel(t *testing.T) {
	require.Equal(t, ResultCancel, Normalize(Reason("unknown-reason"), ResultContinue))
}

func TestNopFuncOverwritesOnCollision(t *testing.T) {
	require.Equal(t, ResultOverwrite, NopFunc(Facts{Reason: ReasonFileNameExists}))
}

func TestNopFuncContinuesOnQueryCancel(t *testing.T) {
	require.Equal(t, ResultContinue, NopFunc(Facts{Reason: ReasonQueryCancel}))
}
