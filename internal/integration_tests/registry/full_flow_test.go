//go:build integration

package registry_test

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	registryv1 "idregistry/contracts/registry"
	"idregistry/internal/gate"
	gatehandler "idregistry/internal/gate/handler"
	httpapi "idregistry/internal/http"
	jwttoken "idregistry/internal/jwt_token"
	"idregistry/internal/keys"
	"idregistry/internal/recoveryproxy"
	proxyhandler "idregistry/internal/recoveryproxy/handler"
	registryhandler "idregistry/internal/registry/handler"
	registryservice "idregistry/internal/registry/service"
	registrystore "idregistry/internal/registry/store"
	"idregistry/internal/signature"
	"idregistry/pkg/domain"
	auditpublisher "idregistry/pkg/platform/audit/publisher"
	auditpg "idregistry/pkg/platform/audit/store/postgres"
	"idregistry/pkg/testutil"
	"idregistry/pkg/testutil/containers"
)

const adminToken = "integration-admin-token"

// participant is a mnemonic-derived keyholder, the way real callers hold
// addresses.
type participant struct {
	priv ed25519.PrivateKey
	addr domain.Address
}

func newParticipant(t *testing.T) participant {
	t.Helper()
	mnemonic, err := keys.NewMnemonic()
	require.NoError(t, err)
	priv, addr, err := keys.Derive(mnemonic)
	require.NoError(t, err)
	return participant{priv: priv, addr: addr}
}

func (p participant) consent(t *testing.T, c signature.Consent) string {
	t.Helper()
	envelope, err := signature.Sign(p.priv, c)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(envelope)
}

// FullFlowSuite drives the registry lifecycle end to end over Postgres:
// bootstrap, opening, registration, transfer, pause, recovery, and the
// hosted proxy, all through the assembled HTTP router.
type FullFlowSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer

	router     http.Handler
	tokens     *jwttoken.JWTService
	identities *registrystore.Postgres
	gateStore  *gate.PostgresStore
	proxyStore *recoveryproxy.PostgresStore
	auditStore *auditpg.Store

	proxyAddr  domain.Address
	controller participant
}

func TestFullFlowSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(FullFlowSuite))
}

func (s *FullFlowSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	s.tokens = jwttoken.NewJWTService("")
	s.controller = newParticipant(s.T())
	s.proxyAddr = newParticipant(s.T()).addr

	db := s.postgres.DB
	s.identities = registrystore.NewPostgres(db)
	s.gateStore = gate.NewPostgresStore(db)
	s.proxyStore = recoveryproxy.NewPostgresStore(db)
	s.auditStore = auditpg.New(db)

	publisher := auditpublisher.NewPublisher(s.auditStore)
	gates := gate.New(s.gateStore, gate.WithLogger(logger), gate.WithAuditPublisher(publisher))
	registry := registryservice.New(s.identities, signature.NewVerifier(), gates,
		registryservice.WithLogger(logger),
		registryservice.WithAuditPublisher(publisher),
	)
	proxy := recoveryproxy.New(s.proxyStore, registry, s.proxyAddr,
		recoveryproxy.WithLogger(logger),
		recoveryproxy.WithAuditPublisher(publisher),
	)

	s.router = httpapi.NewRouter(httpapi.RouterConfig{
		Logger:         logger,
		TokenValidator: s.tokens,
		AdminToken:     adminToken,
		RequestTimeout: 10 * time.Second,
		Registry:       registryhandler.New(registry, logger),
		Gate:           gatehandler.New(gates, s.identities, s.auditStore, logger),
		Proxy:          proxyhandler.New(proxy, logger),
		Healthz:        func(ctx context.Context) error { return db.PingContext(ctx) },
	})
}

func (s *FullFlowSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx,
		"identities", "registry_counter", "gate_state", "proxy_state", "audit_outbox", "audit_events"))
	s.Require().NoError(s.identities.Seed(ctx))
	s.Require().NoError(s.gateStore.Seed(ctx, time.Now().UTC()))
	s.Require().NoError(s.proxyStore.Seed(ctx, s.controller.addr, time.Now().UTC()))
}

func (s *FullFlowSuite) call(p participant, method, path string, body any) *httptest.ResponseRecorder {
	req := testutil.NewJSONRequest(s.T(), method, path, body)
	token, err := s.tokens.GenerateAccessToken(p.priv, time.Minute)
	s.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer "+token)
	return testutil.DoRequest(s.router, req)
}

func (s *FullFlowSuite) admin(method, path string, body any) *httptest.ResponseRecorder {
	req := testutil.NewJSONRequest(s.T(), method, path, body)
	req.Header.Set("X-Admin-Token", adminToken)
	return testutil.DoRequest(s.router, req)
}

func (s *FullFlowSuite) public(method, path string) *httptest.ResponseRecorder {
	return testutil.DoRequest(s.router, testutil.NewRequest(s.T(), method, path))
}

func deadline() int64 { return time.Now().Add(time.Hour).Unix() }

func (s *FullFlowSuite) TestRegistryLifecycle() {
	t := s.T()
	operator := newParticipant(t)
	alice := newParticipant(t)
	bob := newParticipant(t)
	carol := newParticipant(t)
	dave := newParticipant(t)

	testutil.Given(t, "a freshly bootstrapped registry", func(t *testing.T) {
		rr := s.public(http.MethodGet, "/v1/registry/status")
		testutil.AssertStatusOK(t, rr)
		status := testutil.UnmarshalResponse[registryv1.StatusResponse](t, rr)
		require.True(t, status.TrustedOnly)
		require.Zero(t, status.Counter)
	})

	testutil.When(t, "no trusted caller is designated", func(t *testing.T) {
		rr := s.call(operator, http.MethodPost, "/v1/identities", registryv1.RegisterRequest{})
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})

	testutil.When(t, "the operator is designated trusted", func(t *testing.T) {
		rr := s.admin(http.MethodPost, "/v1/admin/trusted-caller",
			registryv1.TrustedCallerRequest{Address: operator.addr.String()})
		testutil.AssertStatus(t, rr, http.StatusNoContent)
	})

	testutil.Then(t, "only the operator can register identities", func(t *testing.T) {
		rr := s.call(alice, http.MethodPost, "/v1/identities", registryv1.RegisterRequest{})
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")

		d := deadline()
		consent := alice.consent(t, signature.RegisterConsent(alice.addr, domain.ZeroAddress, d))
		rr = s.call(operator, http.MethodPost, "/v1/identities/register-for", registryv1.RegisterForRequest{
			To:        alice.addr.String(),
			Deadline:  d,
			Signature: consent,
		})
		testutil.AssertStatus(t, rr, http.StatusCreated)
		id := testutil.UnmarshalResponse[registryv1.IdentityResponse](t, rr)
		require.Equal(t, uint64(1), id.ID, "first identity is number one")
	})

	testutil.When(t, "registration opens", func(t *testing.T) {
		rr := s.admin(http.MethodPost, "/v1/admin/open-registration", nil)
		testutil.AssertStatus(t, rr, http.StatusNoContent)

		// The transition is one-way; a second open reports the conflict.
		rr = s.admin(http.MethodPost, "/v1/admin/open-registration", nil)
		testutil.AssertStatusAndError(t, rr, http.StatusConflict, "already_disabled")
	})

	var bobID uint64
	testutil.Then(t, "anyone can self-register", func(t *testing.T) {
		rr := s.call(bob, http.MethodPost, "/v1/identities",
			registryv1.RegisterRequest{Recovery: carol.addr.String()})
		testutil.AssertStatus(t, rr, http.StatusCreated)
		bobID = testutil.UnmarshalResponse[registryv1.IdentityResponse](t, rr).ID
		require.Equal(t, uint64(2), bobID)

		// One identity per address, permanently.
		rr = s.call(bob, http.MethodPost, "/v1/identities", registryv1.RegisterRequest{})
		testutil.AssertStatusAndError(t, rr, http.StatusConflict, "already_registered")
	})

	testutil.When(t, "registrations are paused", func(t *testing.T) {
		rr := s.admin(http.MethodPost, "/v1/admin/pause", nil)
		testutil.AssertStatus(t, rr, http.StatusNoContent)

		rr = s.call(dave, http.MethodPost, "/v1/identities", registryv1.RegisterRequest{})
		testutil.AssertStatusAndError(t, rr, http.StatusConflict, "paused")
	})

	testutil.Then(t, "transfers still work while paused", func(t *testing.T) {
		d := deadline()
		consent := dave.consent(t, signature.TransferConsent(domain.IdentityID(bobID), dave.addr, d))
		rr := s.call(bob, http.MethodPost, "/v1/identities/transfer", registryv1.TransferRequest{
			To:        dave.addr.String(),
			Deadline:  d,
			Signature: consent,
		})
		testutil.AssertStatus(t, rr, http.StatusNoContent)

		lookup := s.public(http.MethodGet, "/v1/identities/owner/"+dave.addr.String())
		testutil.AssertStatusOK(t, lookup)
		owner := testutil.UnmarshalResponse[registryv1.OwnerResponse](t, lookup)
		require.Equal(t, bobID, owner.ID)
	})

	testutil.Then(t, "unpausing restores registration", func(t *testing.T) {
		rr := s.admin(http.MethodPost, "/v1/admin/unpause", nil)
		testutil.AssertStatus(t, rr, http.StatusNoContent)

		rr = s.call(dave, http.MethodPost, "/v1/identities", registryv1.RegisterRequest{})
		testutil.AssertStatusAndError(t, rr, http.StatusConflict, "already_registered")
	})

	testutil.Then(t, "the recovery address survives the transfer", func(t *testing.T) {
		rr := s.public(http.MethodGet, "/v1/identities/2/recovery")
		testutil.AssertStatusOK(t, rr)
		recovery := testutil.UnmarshalResponse[registryv1.RecoveryResponse](t, rr)
		require.Equal(t, carol.addr.String(), recovery.Recovery)
	})

	testutil.When(t, "the recovery address reclaims the identity", func(t *testing.T) {
		eve := newParticipant(t)
		d := deadline()
		consent := eve.consent(t, signature.RecoverConsent(domain.IdentityID(bobID), eve.addr, d))
		rr := s.call(carol, http.MethodPost, "/v1/identities/recover", registryv1.RecoverRequest{
			From:      dave.addr.String(),
			To:        eve.addr.String(),
			Deadline:  d,
			Signature: consent,
		})
		testutil.AssertStatus(t, rr, http.StatusNoContent)

		lookup := s.public(http.MethodGet, "/v1/identities/owner/"+eve.addr.String())
		owner := testutil.UnmarshalResponse[registryv1.OwnerResponse](t, lookup)
		require.Equal(t, bobID, owner.ID)

		gone := s.public(http.MethodGet, "/v1/identities/owner/"+dave.addr.String())
		former := testutil.UnmarshalResponse[registryv1.OwnerResponse](t, gone)
		require.Zero(t, former.ID, "the recovered-from address holds nothing")
	})

	testutil.Then(t, "every step left an audit trail in the outbox", func(t *testing.T) {
		pending, err := s.auditStore.PendingBatch(context.Background(), 100)
		require.NoError(t, err)
		require.NotEmpty(t, pending)
	})
}

func (s *FullFlowSuite) TestProxyRecoveryOverPostgres() {
	t := s.T()
	owner := newParticipant(t)
	rescued := newParticipant(t)

	testutil.Given(t, "an open registry and an identity guarded by the proxy", func(t *testing.T) {
		rr := s.admin(http.MethodPost, "/v1/admin/open-registration", nil)
		testutil.AssertStatus(t, rr, http.StatusNoContent)

		rr = s.call(owner, http.MethodPost, "/v1/identities",
			registryv1.RegisterRequest{Recovery: s.proxyAddr.String()})
		testutil.AssertStatus(t, rr, http.StatusCreated)
	})

	testutil.When(t, "the controller forwards a recovery", func(t *testing.T) {
		d := deadline()
		consent := rescued.consent(t, signature.RecoverConsent(1, rescued.addr, d))
		rr := s.call(s.controller, http.MethodPost, "/v1/proxy/recover", registryv1.RecoverRequest{
			From:      owner.addr.String(),
			To:        rescued.addr.String(),
			Deadline:  d,
			Signature: consent,
		})
		testutil.AssertStatus(t, rr, http.StatusNoContent)
	})

	testutil.Then(t, "the identity moved and the proxy state is public", func(t *testing.T) {
		lookup := s.public(http.MethodGet, "/v1/identities/owner/"+rescued.addr.String())
		owner := testutil.UnmarshalResponse[registryv1.OwnerResponse](t, lookup)
		require.Equal(t, uint64(1), owner.ID)

		rr := s.public(http.MethodGet, "/v1/proxy/controller")
		testutil.AssertStatusOK(t, rr)
		controller := testutil.UnmarshalResponse[registryv1.ControllerResponse](t, rr)
		require.Equal(t, s.proxyAddr.String(), controller.Address)
		require.Equal(t, s.controller.addr.String(), controller.Controller)
	})
}
