package recoveryproxy

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"idregistry/internal/registry/models"
	"idregistry/pkg/domain"
	dErrors "idregistry/pkg/domain-errors"
	"idregistry/pkg/platform/audit"
)

// =============================================================================
// Proxy Service Test Suite
// =============================================================================
// Justification for unit tests: the proxy service gates every forward on the
// controller check and must call the registry under its own address, never
// the caller's. Both are pinned here against a recording registry fake; the
// end-to-end recovery path is covered by the handler suite.

type recordingRegistry struct {
	mu       sync.Mutex
	calls    []recoverCall
	identity *models.Identity
	err      error
}

type recoverCall struct {
	caller   domain.Address
	from     domain.Address
	to       domain.Address
	deadline int64
	envelope []byte
}

func (r *recordingRegistry) Recover(_ context.Context, caller, from, to domain.Address, deadline int64, envelope []byte) (*models.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recoverCall{caller: caller, from: from, to: to, deadline: deadline, envelope: envelope})
	if r.err != nil {
		return nil, r.err
	}
	return r.identity, nil
}

type proxyPublisher struct {
	mu     sync.Mutex
	events []audit.Event
}

func (p *proxyPublisher) Emit(_ context.Context, event audit.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *proxyPublisher) all() []audit.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]audit.Event(nil), p.events...)
}

type ProxyServiceSuite struct {
	suite.Suite
	ctx        context.Context
	registry   *recordingRegistry
	publisher  *proxyPublisher
	service    *Service
	proxyAddr  domain.Address
	controller domain.Address
	nominee    domain.Address
	stranger   domain.Address
}

func TestProxyServiceSuite(t *testing.T) {
	suite.Run(t, new(ProxyServiceSuite))
}

func (s *ProxyServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.proxyAddr = domain.Address("id1ProxyService")
	s.controller = domain.Address("id1Controller")
	s.nominee = domain.Address("id1Nominee")
	s.stranger = domain.Address("id1Stranger")
	s.registry = &recordingRegistry{
		identity: &models.Identity{ID: 7, Owner: domain.Address("id1NewOwner"), Recovery: s.proxyAddr},
	}
	s.publisher = &proxyPublisher{}
	s.service = New(NewInMemoryStore(s.controller), s.registry, s.proxyAddr,
		WithAuditPublisher(s.publisher))
}

func (s *ProxyServiceSuite) lastEvent() audit.Event {
	events := s.publisher.all()
	s.Require().NotEmpty(events)
	return events[len(events)-1]
}

func (s *ProxyServiceSuite) TestControllerState() {
	state, err := s.service.Controller(s.ctx)
	s.Require().NoError(err)
	s.Equal(s.controller, state.Controller)
	s.True(state.PendingController.IsZero())
	s.Equal(s.proxyAddr, s.service.Address())
}

func (s *ProxyServiceSuite) TestTransferController() {
	s.Run("only the controller may nominate", func() {
		err := s.service.TransferController(s.ctx, s.stranger, s.nominee)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("records the pending controller", func() {
		s.Require().NoError(s.service.TransferController(s.ctx, s.controller, s.nominee))

		state, err := s.service.Controller(s.ctx)
		s.Require().NoError(err)
		s.Equal(s.nominee, state.PendingController)
		s.Equal(s.controller, state.Controller, "nomination must not move control")
	})

	s.Run("emits an audit event with the nominee as subject", func() {
		last := s.lastEvent()
		s.Equal(string(audit.EventControllerNominated), last.Action)
		s.Equal(audit.CategorySecurity, last.Category)
		s.Equal(s.nominee.String(), last.Subject)
	})
}

func (s *ProxyServiceSuite) TestAcceptController() {
	s.Require().NoError(s.service.TransferController(s.ctx, s.controller, s.nominee))

	s.Run("pending nomination grants nothing until accepted", func() {
		_, err := s.service.Recover(s.ctx, s.nominee, domain.Address("id1Lost"), domain.Address("id1Found"), 42, nil)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		s.Empty(s.registry.calls)
	})

	s.Run("accept by a non-nominee fails", func() {
		err := s.service.AcceptController(s.ctx, s.stranger)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("accept promotes the nominee", func() {
		s.Require().NoError(s.service.AcceptController(s.ctx, s.nominee))

		state, err := s.service.Controller(s.ctx)
		s.Require().NoError(err)
		s.Equal(s.nominee, state.Controller)
		s.True(state.PendingController.IsZero())

		last := s.lastEvent()
		s.Equal(string(audit.EventControllerAccepted), last.Action)
		s.Equal(s.nominee.String(), last.Subject)
	})

	s.Run("the old controller loses control", func() {
		err := s.service.TransferController(s.ctx, s.controller, s.stranger)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *ProxyServiceSuite) TestRecoverForwardsUnderProxyAddress() {
	from := domain.Address("id1Lost")
	to := domain.Address("id1Found")
	envelope := []byte("consent-envelope")

	identity, err := s.service.Recover(s.ctx, s.controller, from, to, 1234, envelope)
	s.Require().NoError(err)
	s.Equal(domain.IdentityID(7), identity.ID)

	s.Require().Len(s.registry.calls, 1)
	call := s.registry.calls[0]
	s.Equal(s.proxyAddr, call.caller, "the registry must see the proxy's address, not the controller's")
	s.Equal(from, call.from)
	s.Equal(to, call.to)
	s.Equal(int64(1234), call.deadline)
	s.Equal(envelope, call.envelope)

	last := s.lastEvent()
	s.Equal(string(audit.EventRecoveryForwarded), last.Action)
	s.Equal(audit.CategoryOperations, last.Category)
	s.Equal(uint64(7), uint64(last.IdentityID))
	s.Equal(to.String(), last.Subject)
}

func (s *ProxyServiceSuite) TestRecoverRejectsNonController() {
	_, err := s.service.Recover(s.ctx, s.stranger, domain.Address("id1Lost"), domain.Address("id1Found"), 42, nil)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	s.Empty(s.registry.calls, "an unauthorized forward must never reach the registry")
}

func (s *ProxyServiceSuite) TestRecoverPassesRegistryErrorsThrough() {
	s.registry.err = dErrors.New(dErrors.CodeInvalidSignature, "consent signature is invalid")

	_, err := s.service.Recover(s.ctx, s.controller, domain.Address("id1Lost"), domain.Address("id1Found"), 42, nil)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidSignature))
	s.Empty(s.publisher.all(), "failed forwards must not reach the audit trail")
}
