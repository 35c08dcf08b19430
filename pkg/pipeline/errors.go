package pipeline

import (
	"errors"
	"fmt"
)

// MissingArtifactError is returned when a file-writing stage did not
// produce an expected file even after the file-presence retry (spec.md
// §4.3, §7's missing_artifact kind). Fatal to the stage.
type MissingArtifactError struct {
	Stage Stage
	Paths []string
}

func (e *MissingArtifactError) Error() string {
	return fmt.Sprintf("stage %s: missing expected artifacts: %v", e.Stage, e.Paths)
}

// IsMissingArtifact unwraps err into a *MissingArtifactError, if any.
func IsMissingArtifact(err error) (*MissingArtifactError, bool) {
	var target *MissingArtifactError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// ReconFindingsTooShortError fires when Phase A's extracted findings are
// shorter than 50 characters (spec.md §4.1.1), which the spec treats as a
// fatal RECON failure rather than feeding an empty Synthesize call.
type ReconFindingsTooShortError struct {
	Length int
}

func (e *ReconFindingsTooShortError) Error() string {
	return fmt.Sprintf("recon findings too short to synthesize from: %d characters (minimum 50)", e.Length)
}
