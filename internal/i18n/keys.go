// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeyNotFound          = "common.not_found"
	KeyInternalError     = "common.internal_error"
	KeyValidationInvalid = "validation.invalid"
	KeyRateLimited       = "common.rate_limited"

	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthTokenExpired       = "auth.token_expired"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthUserExists         = "auth.user_exists"
	KeyAuthLoginSuccess       = "auth.login_success"
	KeyAuthRegisterSuccess    = "auth.register_success"
	KeyAuthResetRequested     = "auth.reset_requested"
	KeyAuthPasswordChanged    = "auth.password_changed"
	KeyAdminAccessDenied      = "admin.access_denied"

	// Users
	KeyUserProfileUpdated = "user.profile_updated"
	KeyUserRoleUpdated    = "user.role_updated"
	KeyUserDeleted        = "user.deleted"

	// Catalog
	KeyResourceCreated   = "resource.created"
	KeyResourceUpdated   = "resource.updated"
	KeyResourceDeleted   = "resource.deleted"
	KeyResourcePurchased = "resource.purchased"
	KeyImagesAdded       = "resource.images_added"
	KeyImageDeleted      = "resource.image_deleted"

	// Orders
	KeyOrderCreated   = "order.created"
	KeyOrderConfirmed = "order.confirmed"
	KeyOrderCancelled = "order.cancelled"
	KeyOrderAlready   = "order.already_cancelled"
	KeyInvalidItems   = "order.invalid_items"
	KeyProofRequired  = "order.proof_required"

	// Finance
	KeyTransactionRecorded = "finance.recorded"

	// Documents
	KeyDocumentCreated = "document.created"
	KeyDocumentUpdated = "document.updated"
	KeyDocumentDeleted = "document.deleted"
	KeyFileRequired    = "document.file_required"

	// Sponsors and donations
	KeySponsorReceived  = "sponsor.received"
	KeySponsorUpdated   = "sponsor.updated"
	KeyDonationThanks   = "donation.thanks"
	KeyDonationPending  = "donation.pending"
	KeyDonationDisabled = "donation.disabled"

	// Memberships
	KeyMembershipCreated      = "membership.created"
	KeyMembershipUpdated      = "membership.updated"
	KeyMembershipRenewed      = "membership.renewed"
	KeyMembershipReactivation = "membership.reactivation_requested"
	KeyMembershipStatus       = "membership.status_updated"
	KeyMembershipPayment      = "membership.payment_recorded"
	KeyMembershipNotOwner     = "membership.not_owner"

	// Events
	KeyEventCreated      = "event.created"
	KeyEventUpdated      = "event.updated"
	KeyEventDeleted      = "event.deleted"
	KeyEventRegistered   = "event.registered"
	KeyEventUnregistered = "event.unregistered"
)
