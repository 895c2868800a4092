// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess = "success"
	KeyError   = "error"

	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthTokenExpired       = "auth.token_expired"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthUserExists         = "auth.user_exists"
	KeyAuthLoginSuccess       = "auth.login_success"
	KeyAuthLogoutSuccess      = "auth.logout_success"
	KeyAuthRegisterSuccess    = "auth.register_success"

	// Users
	KeyUserNotFound = "user.not_found"

	// Admin
	KeyAdminAccessDenied  = "admin.access_denied"
	KeyAdminActionSuccess = "admin.action_success"

	// Rules
	KeyRuleCreated  = "rule.created"
	KeyRuleUpdated  = "rule.updated"
	KeyRuleDeleted  = "rule.deleted"
	KeyRuleNotFound = "rule.not_found"
	KeyRuleConflict = "rule.conflict"
	KeyRuleInUse    = "rule.in_use"

	// Legal documents
	KeyDocumentCreated   = "legal_document.created"
	KeyDocumentActivated = "legal_document.activated"
	KeyDocumentNotFound  = "legal_document.not_found"
	KeyDocumentFuture    = "legal_document.future_dated"

	// Consent
	KeyConsentRecorded = "consent.recorded"
	KeyConsentRequired = "consent.required"

	// Settlements
	KeySettlementGenerated   = "settlement.generated"
	KeySettlementFinalized   = "settlement.finalized"
	KeySettlementRegenerated = "settlement.regenerated"
	KeySettlementNotFound    = "settlement.not_found"
	KeySettlementEmpty       = "settlement.empty_period"

	// Catalog
	KeyCategoryCreated  = "category.created"
	KeyCategoryUpdated  = "category.updated"
	KeyCategoryDeleted  = "category.deleted"
	KeyCategoryNotFound = "category.not_found"
	KeyCategoryInUse    = "category.in_use"

	// Stores
	KeyStoreNotFound  = "store.not_found"
	KeyStoreApproved  = "store.approved"
	KeyStoreSuspended = "store.suspended"

	// Refunds & returns
	KeyRefundApproved  = "refund.approved"
	KeyRefundRejected  = "refund.rejected"
	KeyRefundProcessed = "refund.processed"
	KeyRefundNotFound  = "refund.not_found"
	KeyReturnCreated   = "return.created"
	KeyReturnNotFound  = "return.not_found"
	KeyReturnResolved  = "return.resolved"

	// Moderation
	KeyModerationApproved = "moderation.approved"
	KeyModerationRejected = "moderation.rejected"
	KeyModerationNotFound = "moderation.not_found"

	// Feature flags
	KeyFlagUpdated  = "feature_flag.updated"
	KeyFlagNotFound = "feature_flag.not_found"

	// Validation
	KeyValidationInvalid = "validation.invalid"

	// System
	KeySystemUnavailable = "system.unavailable"
	KeyInternalError     = "system.internal_error"
)
