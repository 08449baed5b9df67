package verification

// State is the verification state owned by the orchestrator.
//
// The stage flags are all-or-nothing: once true, the corresponding request is a no-op.
// Progress is append-only. Error holds the single current error message; setting it
// never removes progress entries.
type State struct {
	ProofVerified      bool
	HashVerified       bool
	SignaturesVerified bool

	Progress []string

	Error    string
	HasError bool

	// Loading is true while a worker-bound request is outstanding.
	Loading bool
}

// NewState returns the state of a fresh orchestrator.
func NewState() *State {
	return &State{}
}

// Verified returns the flag of the given stage. Playback has no flag.
func (s State) Verified(stage Stage) bool {
	switch stage {
	case StageProof:
		return s.ProofVerified
	case StageHash:
		return s.HashVerified
	case StageSignatures:
		return s.SignaturesVerified
	default:
		return false
	}
}

// MarkVerified sets the flag of the given stage.
func (s *State) MarkVerified(stage Stage) {
	switch stage {
	case StageProof:
		s.ProofVerified = true
	case StageHash:
		s.HashVerified = true
	case StageSignatures:
		s.SignaturesVerified = true
	}
}

// AllVerified reports whether proof, hash and signatures are all verified.
func (s State) AllVerified() bool {
	return s.ProofVerified && s.HashVerified && s.SignaturesVerified
}

// AppendProgress appends a human-readable result line.
func (s *State) AppendProgress(line string) {
	s.Progress = append(s.Progress, line)
}

// SetError replaces the current error.
func (s *State) SetError(msg string) {
	s.Error = msg
	s.HasError = true
}

// ClearError removes the current error.
func (s *State) ClearError() {
	s.Error = ""
	s.HasError = false
}

// Snapshot returns a deep copy that can be handed out of the owning routine.
func (s *State) Snapshot() State {
	snapshot := *s
	snapshot.Progress = append([]string(nil), s.Progress...)
	return snapshot
}
