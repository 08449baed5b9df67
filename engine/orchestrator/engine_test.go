package orchestrator

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/zkpodai/attested-audio/crypto/signature"
	"github.com/zkpodai/attested-audio/engine/worker"
	"github.com/zkpodai/attested-audio/model/bundle"
	"github.com/zkpodai/attested-audio/model/verification"
	"github.com/zkpodai/attested-audio/module"
	"github.com/zkpodai/attested-audio/module/irrecoverable"
	"github.com/zkpodai/attested-audio/module/metrics"
	mockmodule "github.com/zkpodai/attested-audio/module/mock"
	"github.com/zkpodai/attested-audio/utils/unittest"
)

const (
	paddedFive = "0000000000000000000000000000000000000000000000000000000000000005"
	paddedTen  = "000000000000000000000000000000000000000000000000000000000000000a"
	paddedFF   = "00000000000000000000000000000000000000000000000000000000000000ff"
)

// OrchestratorSuite runs the orchestrator against a real compute worker with mocked engines.
type OrchestratorSuite struct {
	suite.Suite

	bundle    *bundle.Bundle
	verifier  *mockmodule.ProofVerifier
	hasher    *mockmodule.AudioHasher
	player    *mockmodule.Player
	recoverer module.SignerRecoverer

	engine *Engine
	cancel context.CancelFunc
	errs   <-chan error
}

func TestOrchestrator(t *testing.T) {
	suite.Run(t, new(OrchestratorSuite))
}

func (s *OrchestratorSuite) SetupTest() {
	s.bundle = unittest.BundleFixture(s.T())
	s.verifier = mockmodule.NewProofVerifier(s.T())
	s.hasher = mockmodule.NewAudioHasher(s.T())
	s.player = mockmodule.NewPlayer(s.T())
	s.recoverer = signature.NewEthRecoverer()
	s.engine = nil
	s.cancel = nil
}

// start builds the orchestrator over the current bundle and starts it.
func (s *OrchestratorSuite) start() {
	loader := func(context.Context) (*module.Engines, error) {
		return &module.Engines{Verifier: s.verifier, Hasher: s.hasher}, nil
	}
	collector := metrics.NewNoopCollector()

	w, err := worker.New(unittest.Logger(), collector, s.bundle, loader, worker.DefaultInboxCapacity)
	s.Require().NoError(err)
	s.engine, err = New(unittest.Logger(), collector, s.bundle, w, s.recoverer, s.player)
	s.Require().NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	signalerCtx, errs := irrecoverable.WithSignaler(ctx)
	s.cancel = cancel
	s.errs = errs

	s.engine.Start(signalerCtx)
	unittest.RequireCloseBefore(s.T(), s.engine.Ready(), time.Second, "orchestrator did not start")
}

func (s *OrchestratorSuite) TearDownTest() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	unittest.RequireCloseBefore(s.T(), s.engine.Done(), time.Second, "orchestrator did not stop")
	select {
	case err := <-s.errs:
		s.Require().NoError(err)
	default:
	}
}

func (s *OrchestratorSuite) wait(f *Future) verification.Outcome {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	outcome, err := f.Wait(ctx)
	s.Require().NoError(err)
	return outcome
}

func (s *OrchestratorSuite) expectVerify(err error) *mock.Call {
	return s.verifier.On("Verify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(err)
}

func (s *OrchestratorSuite) TestProofVerification() {
	s.expectVerify(nil).Once()
	s.start()

	outcome := s.wait(s.engine.RequestProofVerification())
	s.Assert().Equal(verification.Succeeded(verification.StageProof), outcome)

	state := s.engine.State()
	s.Assert().True(state.ProofVerified)
	s.Assert().False(state.Loading)
	s.Assert().False(state.HasError)
	s.Assert().Equal([]string{
		"Proof verification successful. Public inputs are: [" + paddedFive + ", " + paddedTen + ", " + paddedFF + "]",
	}, state.Progress)
}

// once verified, a proof request issues no request and leaves the state unchanged
func (s *OrchestratorSuite) TestProofVerification_Idempotent() {
	s.expectVerify(nil).Once()
	s.start()

	s.wait(s.engine.RequestProofVerification())
	before := s.engine.State()

	for i := 0; i < 3; i++ {
		outcome := s.wait(s.engine.RequestProofVerification())
		s.Assert().Equal(verification.StatusSkipped, outcome.Status)
	}
	s.Assert().Equal(before, s.engine.State())
	s.verifier.AssertNumberOfCalls(s.T(), "Verify", 1)
}

func (s *OrchestratorSuite) TestProofVerification_Rejected() {
	s.expectVerify(errors.New("pairing check failed")).Once()
	s.expectVerify(nil).Once()
	s.start()

	outcome := s.wait(s.engine.RequestProofVerification())
	s.Assert().Equal(verification.StatusFailed, outcome.Status)
	s.Assert().True(verification.IsEngineVerificationFailure(outcome.Err))

	state := s.engine.State()
	s.Assert().False(state.ProofVerified)
	s.Assert().False(state.Loading)
	s.Assert().True(state.HasError)
	s.Assert().Equal("pairing check failed", state.Error)
	s.Assert().Empty(state.Progress)

	// retry remains possible and clears the error
	outcome = s.wait(s.engine.RequestProofVerification())
	s.Assert().Equal(verification.StatusSucceeded, outcome.Status)
	state = s.engine.State()
	s.Assert().True(state.ProofVerified)
	s.Assert().False(state.HasError)
}

// public inputs [5, 10, 255] and a hash of 255
func (s *OrchestratorSuite) TestHashVerification() {
	s.hasher.On("Hash", mock.Anything, []byte(s.bundle.CombinedWav)).Return(big.NewInt(255), nil).Once()
	s.start()

	outcome := s.wait(s.engine.RequestHashVerification())
	s.Assert().Equal(verification.Succeeded(verification.StageHash), outcome)

	state := s.engine.State()
	s.Assert().True(state.HashVerified)
	s.Assert().Equal([]string{"Hash: ff"}, state.Progress)

	outcome = s.wait(s.engine.RequestHashVerification())
	s.Assert().Equal(verification.StatusSkipped, outcome.Status)
}

func (s *OrchestratorSuite) TestHashVerification_Mismatch() {
	s.bundle = unittest.BundleFixture(s.T(), unittest.WithPublicInputs(5, 10, 0x1a2b))
	s.hasher.On("Hash", mock.Anything, mock.Anything).Return(big.NewInt(0x1a2c), nil).Once()
	s.hasher.On("Hash", mock.Anything, mock.Anything).Return(big.NewInt(0x1a2b), nil).Once()
	s.start()

	outcome := s.wait(s.engine.RequestHashVerification())
	s.Assert().Equal(verification.StatusFailed, outcome.Status)
	s.Require().True(verification.IsLocalHashMismatch(outcome.Err))
	s.Assert().False(verification.IsEngineHashFault(outcome.Err))

	var mismatch verification.LocalHashMismatch
	s.Require().True(errors.As(outcome.Err, &mismatch))
	s.Assert().Equal("1a2c", mismatch.Computed)
	s.Assert().Equal("0000000000000000000000000000000000000000000000000000000000001a2b", mismatch.Expected)

	state := s.engine.State()
	s.Assert().False(state.HashVerified)
	s.Assert().True(state.HasError)
	s.Assert().Empty(state.Progress)

	// retry is possible
	outcome = s.wait(s.engine.RequestHashVerification())
	s.Assert().Equal(verification.StatusSucceeded, outcome.Status)
	s.Assert().Equal([]string{"Hash: 1a2b"}, s.engine.State().Progress)
}

func (s *OrchestratorSuite) TestHashVerification_EngineFault() {
	s.hasher.On("Hash", mock.Anything, mock.Anything).Return(nil, errors.New("hash engine crashed")).Once()
	s.start()

	outcome := s.wait(s.engine.RequestHashVerification())
	s.Assert().True(verification.IsEngineHashFault(outcome.Err))
	s.Assert().Equal("hash engine crashed", s.engine.State().Error)
}

func (s *OrchestratorSuite) TestSignatureVerification() {
	first, firstSigner := unittest.SignedMessageFixture(s.T(), "recorded on device 1")
	second, secondSigner := unittest.SignedMessageFixture(s.T(), "mixed by studio 2")
	third, thirdSigner := unittest.SignedMessageFixture(s.T(), "published by label 3")
	s.bundle = unittest.BundleFixture(s.T(), unittest.WithSignatures(first, second, third))
	s.start()

	outcome := s.wait(s.engine.RequestSignatureVerification())
	s.Assert().Equal(verification.Succeeded(verification.StageSignatures), outcome)

	expected := []string{
		"Verified signature from " + firstSigner + " on message recorded on device 1",
		"Verified signature from " + secondSigner + " on message mixed by studio 2",
		"Verified signature from " + thirdSigner + " on message published by label 3",
	}
	state := s.engine.State()
	s.Assert().True(state.SignaturesVerified)
	s.Assert().Equal(expected, state.Progress)

	// the flag is set once: a second request is skipped and appends nothing
	outcome = s.wait(s.engine.RequestSignatureVerification())
	s.Assert().Equal(verification.StatusSkipped, outcome.Status)
	s.Assert().Equal(expected, s.engine.State().Progress)
}

// [a valid, b invalid] halts after a, and a retry restarts from a
func (s *OrchestratorSuite) TestSignatureVerification_Halt() {
	valid, signer := unittest.SignedMessageFixture(s.T(), "a")
	invalid := unittest.InvalidSignedMessageFixture(s.T(), "b")
	s.bundle = unittest.BundleFixture(s.T(), unittest.WithSignatures(valid, invalid))
	s.start()

	outcome := s.wait(s.engine.RequestSignatureVerification())
	s.Assert().Equal(verification.StatusFailed, outcome.Status)
	s.Require().True(verification.IsSignatureVerificationFailure(outcome.Err))
	s.Assert().ErrorIs(outcome.Err, signature.ErrInvalidSignature)

	var failure verification.SignatureVerificationFailure
	s.Require().True(errors.As(outcome.Err, &failure))
	s.Assert().Equal(1, failure.Index)
	s.Assert().Equal("b", failure.Message)

	line := "Verified signature from " + signer + " on message a"
	state := s.engine.State()
	s.Assert().False(state.SignaturesVerified)
	s.Assert().True(state.HasError)
	s.Assert().Equal([]string{line}, state.Progress)

	outcome = s.wait(s.engine.RequestSignatureVerification())
	s.Assert().Equal(verification.StatusFailed, outcome.Status)
	state = s.engine.State()
	s.Assert().False(state.SignaturesVerified)
	s.Assert().Equal([]string{line, line}, state.Progress)
}

func (s *OrchestratorSuite) TestSignatureVerification_HaltAtFirst() {
	invalid := unittest.InvalidSignedMessageFixture(s.T(), "a")
	valid, _ := unittest.SignedMessageFixture(s.T(), "b")

	recoverer := mockmodule.NewSignerRecoverer(s.T())
	recoverer.On("RecoverSigner", "a", invalid.Signature).Return("", signature.ErrInvalidSignature).Once()
	s.recoverer = recoverer
	s.bundle = unittest.BundleFixture(s.T(), unittest.WithSignatures(invalid, valid))
	s.start()

	outcome := s.wait(s.engine.RequestSignatureVerification())
	s.Assert().Equal(verification.StatusFailed, outcome.Status)
	s.Assert().Empty(s.engine.State().Progress)
	recoverer.AssertNotCalled(s.T(), "RecoverSigner", "b", valid.Signature)
}

func (s *OrchestratorSuite) TestSignatureVerification_Empty() {
	s.start()

	outcome := s.wait(s.engine.RequestSignatureVerification())
	s.Assert().Equal(verification.StatusSucceeded, outcome.Status)
	state := s.engine.State()
	s.Assert().True(state.SignaturesVerified)
	s.Assert().Empty(state.Progress)
}

// playback has no flag: every request plays again
func (s *OrchestratorSuite) TestPlayback() {
	s.player.On("Play", []byte(s.bundle.CombinedWav)).Return(nil).Times(3)
	s.start()

	for i := 0; i < 3; i++ {
		outcome := s.wait(s.engine.RequestPlayback())
		s.Assert().Equal(verification.Succeeded(verification.StagePlayback), outcome)
	}
	s.Assert().Equal(verification.State{}, s.engine.State())
}

func (s *OrchestratorSuite) TestPlayback_Failure() {
	s.player.On("Play", mock.Anything).Return(errors.New("no audio device")).Once()
	s.start()

	outcome := s.wait(s.engine.RequestPlayback())
	s.Assert().True(verification.IsPlaybackFailure(outcome.Err))
	s.Assert().True(s.engine.State().HasError)
}

func (s *OrchestratorSuite) TestRunAll() {
	signed, signer := unittest.SignedMessageFixture(s.T(), "a")
	s.bundle = unittest.BundleFixture(s.T(), unittest.WithSignatures(signed))
	s.expectVerify(nil).Once()
	s.hasher.On("Hash", mock.Anything, mock.Anything).Return(big.NewInt(255), nil).Once()
	s.start()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	outcomes, err := s.engine.RunAll(ctx)
	s.Require().NoError(err)
	s.Require().Len(outcomes, 3)
	for _, outcome := range outcomes {
		s.Assert().Equal(verification.StatusSucceeded, outcome.Status)
	}

	state := s.engine.State()
	s.Assert().True(state.AllVerified())
	s.Assert().Equal("Hash: ff", state.Progress[1])
	s.Assert().Equal("Verified signature from "+signer+" on message a", state.Progress[2])

	// a second run skips every stage
	outcomes, err = s.engine.RunAll(ctx)
	s.Require().NoError(err)
	for _, outcome := range outcomes {
		s.Assert().Equal(verification.StatusSkipped, outcome.Status)
	}
}

func (s *OrchestratorSuite) TestRunAll_StopsAtFirstFailure() {
	s.expectVerify(errors.New("invalid proof")).Once()
	s.start()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	outcomes, err := s.engine.RunAll(ctx)
	s.Require().Error(err)
	s.Assert().True(verification.IsEngineVerificationFailure(err))
	s.Assert().Len(outcomes, 1)
	s.hasher.AssertNotCalled(s.T(), "Hash", mock.Anything, mock.Anything)
}

// shutting down with a request in flight drops it silently
func (s *OrchestratorSuite) TestShutdownWithRequestInFlight() {
	verifying := make(chan struct{})
	s.verifier.On("Verify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			close(verifying)
			<-args.Get(0).(context.Context).Done()
		}).
		Return(context.Canceled).Once()
	s.start()

	future := s.engine.RequestProofVerification()
	unittest.RequireCloseBefore(s.T(), verifying, time.Second, "proof verification did not start")

	s.cancel()
	unittest.RequireCloseBefore(s.T(), s.engine.Done(), time.Second, "orchestrator did not stop")

	_, err := future.Wait(context.Background())
	s.Assert().ErrorIs(err, verification.ErrWorkerTerminated)

	state := s.engine.State()
	s.Assert().False(state.HasError)
	s.Assert().False(state.ProofVerified)

	// requests after shutdown are never resolved either
	_, err = s.engine.RequestHashVerification().Wait(context.Background())
	s.Assert().ErrorIs(err, verification.ErrWorkerTerminated)
}
