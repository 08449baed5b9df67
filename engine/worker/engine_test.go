package worker

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/atomic"

	"github.com/zkpodai/attested-audio/model/bundle"
	"github.com/zkpodai/attested-audio/model/messages"
	"github.com/zkpodai/attested-audio/module"
	"github.com/zkpodai/attested-audio/module/component"
	"github.com/zkpodai/attested-audio/module/irrecoverable"
	"github.com/zkpodai/attested-audio/module/metrics"
	mockmodule "github.com/zkpodai/attested-audio/module/mock"
	"github.com/zkpodai/attested-audio/utils/unittest"
)

type WorkerSuite struct {
	suite.Suite

	bundle   *bundle.Bundle
	verifier *mockmodule.ProofVerifier
	hasher   *mockmodule.AudioHasher
	loads    *atomic.Int32
	loadErr  error

	engine *Engine
	cancel context.CancelFunc
	errs   <-chan error
}

func TestWorker(t *testing.T) {
	suite.Run(t, new(WorkerSuite))
}

func (s *WorkerSuite) SetupTest() {
	s.bundle = unittest.BundleFixture(s.T())
	s.verifier = mockmodule.NewProofVerifier(s.T())
	s.hasher = mockmodule.NewAudioHasher(s.T())
	s.loads = atomic.NewInt32(0)
	s.loadErr = nil

	s.engine = s.newEngine(metrics.NewNoopCollector())
}

func (s *WorkerSuite) newEngine(collector module.VerificationMetrics) *Engine {
	loader := func(ctx context.Context) (*module.Engines, error) {
		s.loads.Inc()
		if s.loadErr != nil {
			return nil, s.loadErr
		}
		return &module.Engines{Verifier: s.verifier, Hasher: s.hasher}, nil
	}

	engine, err := New(unittest.Logger(), collector, s.bundle, loader, DefaultInboxCapacity)
	s.Require().NoError(err)
	return engine
}

func (s *WorkerSuite) start() {
	ctx, cancel := context.WithCancel(context.Background())
	signalerCtx, errs := irrecoverable.WithSignaler(ctx)
	s.cancel = cancel
	s.errs = errs

	s.engine.Start(signalerCtx)
	unittest.RequireCloseBefore(s.T(), s.engine.Ready(), time.Second, "compute worker did not start")
}

func (s *WorkerSuite) TearDownTest() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	unittest.RequireCloseBefore(s.T(), s.engine.Done(), time.Second, "compute worker did not stop")
	select {
	case err := <-s.errs:
		s.Require().NoError(err)
	default:
	}
	s.cancel = nil
}

func (s *WorkerSuite) submit(id messages.RequestID, action messages.Action) messages.WorkerResponse {
	s.Require().NoError(s.engine.Submit(messages.WorkerRequest{ID: id, Action: action}))
	return s.receive()
}

func (s *WorkerSuite) receive() messages.WorkerResponse {
	select {
	case response := <-s.engine.Responses():
		return response
	case <-time.After(time.Second):
		s.T().Fatal("no response from compute worker")
	}
	return messages.WorkerResponse{}
}

func (s *WorkerSuite) TestVerify() {
	s.verifier.On("Verify", mock.Anything, []byte(s.bundle.VerifyingKey), []byte(s.bundle.Proof), mock.Anything, mock.Anything).
		Return(nil).Once()
	s.start()

	response := s.submit(1, messages.ActionVerify)
	s.Assert().Equal(messages.NewVerifyResponse(1), response)
	s.Assert().False(response.Failed())
}

func (s *WorkerSuite) TestVerify_Rejected() {
	s.verifier.On("Verify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("pairing check failed")).Once()
	s.start()

	response := s.submit(7, messages.ActionVerify)
	s.Assert().True(response.Failed())
	s.Assert().Equal(messages.RequestID(7), response.ID)
	s.Assert().Empty(response.Action)
	s.Assert().Equal("pairing check failed", response.FailureMessage())
}

// the hash is reported as unpadded lowercase hex
func (s *WorkerSuite) TestHash() {
	s.hasher.On("Hash", mock.Anything, []byte(s.bundle.CombinedWav)).Return(big.NewInt(0x0abc), nil).Once()
	s.start()

	response := s.submit(2, messages.ActionHash)
	s.Assert().Equal(messages.NewHashResponse(2, "abc"), response)
}

func (s *WorkerSuite) TestHash_Fault() {
	s.hasher.On("Hash", mock.Anything, mock.Anything).Return(nil, errors.New("out of memory")).Once()
	s.start()

	response := s.submit(3, messages.ActionHash)
	s.Assert().True(response.Failed())
	s.Assert().Equal("out of memory", response.FailureMessage())
}

func (s *WorkerSuite) TestUnknownAction() {
	s.start()

	response := s.submit(4, messages.Action("PROVE"))
	s.Assert().True(response.Failed())
	s.Assert().Equal(messages.RequestID(4), response.ID)
	s.Assert().Contains(response.FailureMessage(), "unknown action")
	s.Assert().Equal(int32(0), s.loads.Load())
}

// requests are handled in FIFO order and the engines are loaded once
func (s *WorkerSuite) TestLazyInitialization() {
	s.verifier.On("Verify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	s.hasher.On("Hash", mock.Anything, mock.Anything).Return(big.NewInt(255), nil)

	// submitted before start
	for i := 1; i <= 6; i++ {
		action := messages.ActionVerify
		if i%2 == 0 {
			action = messages.ActionHash
		}
		s.Require().NoError(s.engine.Submit(messages.WorkerRequest{ID: messages.RequestID(i), Action: action}))
	}
	s.Assert().Equal(int32(0), s.loads.Load())

	s.start()
	for i := 1; i <= 6; i++ {
		response := s.receive()
		s.Assert().Equal(messages.RequestID(i), response.ID)
		s.Assert().False(response.Failed())
	}
	s.Assert().Equal(int32(1), s.loads.Load())
}

func (s *WorkerSuite) TestInitializationRetried() {
	s.loadErr = errors.New("wasm module unavailable")
	s.verifier.On("Verify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	s.start()

	response := s.submit(1, messages.ActionVerify)
	s.Assert().True(response.Failed())
	s.Assert().Contains(response.FailureMessage(), "wasm module unavailable")

	s.loadErr = nil
	response = s.submit(2, messages.ActionVerify)
	s.Assert().False(response.Failed())
	s.Assert().Equal(int32(2), s.loads.Load())
}

func (s *WorkerSuite) TestPanicRecovered() {
	s.verifier.On("Verify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { panic("index out of range") }).Once()
	s.hasher.On("Hash", mock.Anything, mock.Anything).Return(big.NewInt(1), nil).Once()
	s.start()

	response := s.submit(1, messages.ActionVerify)
	s.Assert().True(response.Failed())
	s.Assert().Equal(messages.RequestID(1), response.ID)
	s.Assert().Contains(response.FailureMessage(), "index out of range")

	// the worker keeps serving requests
	response = s.submit(2, messages.ActionHash)
	s.Assert().Equal(messages.NewHashResponse(2, "1"), response)
}

func (s *WorkerSuite) TestInboxFull() {
	engine, err := New(unittest.Logger(), metrics.NewNoopCollector(), s.bundle, nil, 2)
	s.Require().NoError(err)

	s.Require().NoError(engine.Submit(messages.WorkerRequest{ID: 1, Action: messages.ActionVerify}))
	s.Require().NoError(engine.Submit(messages.WorkerRequest{ID: 2, Action: messages.ActionVerify}))
	err = engine.Submit(messages.WorkerRequest{ID: 3, Action: messages.ActionVerify})
	s.Require().ErrorIs(err, ErrInboxFull)
}

func (s *WorkerSuite) TestSubmitAfterShutdown() {
	s.start()
	s.cancel()
	unittest.RequireCloseBefore(s.T(), s.engine.Done(), time.Second, "compute worker did not stop")

	err := s.engine.Submit(messages.WorkerRequest{ID: 1, Action: messages.ActionVerify})
	s.Require().ErrorIs(err, component.ErrComponentShutdown)
}

// panickyMetrics panics when the inbox is drained, outside of any request handler.
type panickyMetrics struct {
	*metrics.NoopCollector
}

func (panickyMetrics) WorkerInboxSize(size int) {
	if size == 0 {
		panic("metrics backend unavailable")
	}
}

func (s *WorkerSuite) TestFault() {
	s.engine = s.newEngine(panickyMetrics{metrics.NewNoopCollector()})
	s.start()

	s.Require().NoError(s.engine.Submit(messages.WorkerRequest{ID: 1, Action: messages.ActionVerify}))
	select {
	case fault := <-s.engine.Faults():
		s.Assert().Contains(fault.Error(), "metrics backend unavailable")
	case <-time.After(time.Second):
		s.T().Fatal("no fault from compute worker")
	}
}

// the worker operates on its own copy of the bundle
func TestWorker_BundleCopied(t *testing.T) {
	b := unittest.BundleFixture(t)
	hasher := mockmodule.NewAudioHasher(t)
	expected := append([]byte(nil), b.CombinedWav...)
	hasher.On("Hash", mock.Anything, expected).Return(big.NewInt(9), nil).Once()

	loader := func(context.Context) (*module.Engines, error) {
		return &module.Engines{Verifier: mockmodule.NewProofVerifier(t), Hasher: hasher}, nil
	}
	engine, err := New(unittest.Logger(), metrics.NewNoopCollector(), b, loader, 4)
	require.NoError(t, err)

	for i := range b.CombinedWav {
		b.CombinedWav[i] = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	engine.Start(irrecoverable.NewMockSignalerContext(t, ctx))
	unittest.RequireCloseBefore(t, engine.Ready(), time.Second, "compute worker did not start")

	require.NoError(t, engine.Submit(messages.WorkerRequest{ID: 1, Action: messages.ActionHash}))
	select {
	case response := <-engine.Responses():
		assert.Equal(t, messages.NewHashResponse(1, "9"), response)
	case <-time.After(time.Second):
		t.Fatal("no response from compute worker")
	}

	cancel()
	unittest.RequireCloseBefore(t, engine.Done(), time.Second, "compute worker did not stop")
}
