package domain

// Workflow errors
var (
	ErrRequestNotFound         = NewDomainError("lead status request not found")
	ErrDuplicatePendingRequest = NewDomainError("a pending status request already exists for this lead")
	ErrResolutionInProgress    = NewDomainError("the previous status request for this lead is still being archived")
	ErrAlreadyResolved         = NewDomainError("lead status request is already resolved")
	ErrInsufficientRole        = NewDomainError("actor role is insufficient to resolve this request")
	ErrNotResolved             = NewDomainError("lead status request is not resolved")
	ErrAlreadyArchived         = NewDomainError("lead status request is already archived")
	ErrEmptyChangeSet          = NewDomainError("change set must contain at least one field change")
	ErrAlreadyLogged           = NewDomainError("change for this request is already logged")
	ErrInvalidRequest          = NewDomainError("invalid lead status request")
	ErrInvalidDecision         = NewDomainError("decision must be APPROVED or REJECTED")
	ErrLeadNotFound            = NewDomainError("lead not found")
	ErrIdentityNotFound        = NewDomainError("identity not found")
)

// DomainError represents a domain-specific error
type DomainError struct {
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func NewDomainError(message string) *DomainError {
	return &DomainError{Message: message}
}
