package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"idregistry/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// These require tamper-proof storage and long retention.
	// Examples: id allocation, ownership transfers, recovery executions.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring and forensics.
	// These feed into SIEM systems and alerting pipelines.
	// Examples: rejected consents, pause toggles, trusted-caller changes.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational visibility.
	// These can be sampled or aggregated with shorter retention.
	// Examples: proxy forwards, routine administrative reads.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
//
// IdentityID is zero for registry-level events (gate changes, rejected
// consents with no id involved); since id 0 is never allocated, the zero key
// unambiguously groups administrative events.
type Event struct {
	Category   EventCategory
	Timestamp  time.Time
	IdentityID domain.IdentityID
	// Subject is the address or value the action applied to.
	Subject string
	// Actor is the authenticated caller who performed the action.
	Actor     string
	Action    string
	Reason    string
	IP        string
	Device    string
	RequestID string
}

// Store persists audit events and serves the administrative trail queries.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByIdentity(ctx context.Context, identityID domain.IdentityID) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// OutboxEntry is a pending row in the transactional outbox, waiting to be
// relayed to the event bus.
type OutboxEntry struct {
	ID          uuid.UUID
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

type AuditEvent string

const (
	// Gate events
	EventTrustedCallerSet   AuditEvent = "trusted_caller_set"
	EventRegistrationOpened AuditEvent = "registration_opened"
	EventRegistryPaused     AuditEvent = "registry_paused"
	EventRegistryUnpaused   AuditEvent = "registry_unpaused"

	// Identity events
	EventIdentityRegistered  AuditEvent = "identity_registered"
	EventIdentityTransferred AuditEvent = "identity_transferred"
	EventIdentityRecovered   AuditEvent = "identity_recovered"
	EventRecoveryChanged     AuditEvent = "recovery_changed"
	EventConsentRejected     AuditEvent = "consent_rejected"

	// Recovery proxy events
	EventControllerNominated AuditEvent = "controller_nominated"
	EventControllerAccepted  AuditEvent = "controller_accepted"
	EventRecoveryForwarded   AuditEvent = "recovery_forwarded"
)

// eventCategories maps each audit event to its category.
// Compliance: the permanent ownership ledger, long retention required.
// Security: security monitoring, SIEM integration, alerting.
// Operations: debugging, operational visibility, can be sampled.
var eventCategories = map[AuditEvent]EventCategory{
	// Compliance events - the who-owns-which-id history
	EventIdentityRegistered:  CategoryCompliance,
	EventIdentityTransferred: CategoryCompliance,
	EventIdentityRecovered:   CategoryCompliance,
	EventRecoveryChanged:     CategoryCompliance,
	EventRegistrationOpened:  CategoryCompliance,

	// Security events - feed into SIEM and alerting
	EventTrustedCallerSet:    CategorySecurity,
	EventRegistryPaused:      CategorySecurity,
	EventRegistryUnpaused:    CategorySecurity,
	EventConsentRejected:     CategorySecurity,
	EventControllerNominated: CategorySecurity,
	EventControllerAccepted:  CategorySecurity,

	// Operations events - routine activity, can be sampled
	EventRecoveryForwarded: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// TopicFor returns the bus topic carrying events of the given category.
func TopicFor(category EventCategory) string {
	return "audit." + string(category)
}

// Topics lists every audit bus topic.
func Topics() []string {
	return []string{
		TopicFor(CategoryCompliance),
		TopicFor(CategorySecurity),
		TopicFor(CategoryOperations),
	}
}
