package model

// AccessCode is one ledger record, keyed by its short code string. Codes are
// never physically deleted; disabling is the only retirement path.
type AccessCode struct {
	AssignedTo    string      `json:"assigned_to"`
	Email         string      `json:"email"`
	CreatedAt     Timestamp   `json:"created_at"`
	ExpiresAt     Timestamp   `json:"expires_at"`
	IsValid       bool        `json:"is_valid"`
	UsesRemaining int         `json:"uses_remaining"`
	LastUsed      *Timestamp  `json:"last_used,omitempty"`
	Notes         string      `json:"notes"`
	AccessLevel   AccessLevel `json:"access_level"`
}

// Status derives the lifecycle label for a code at the given reference
// time. Disabled takes priority over expired, which takes priority over
// depleted; a disabled code must never be reported as merely expired.
func (c AccessCode) Status(ref Timestamp) CodeStatus {
	switch {
	case !c.IsValid:
		return CodeStatusDisabled
	case c.ExpiresAt.Before(ref.Time):
		return CodeStatusExpired
	case c.UsesRemaining <= 0:
		return CodeStatusDepleted
	default:
		return CodeStatusActive
	}
}

// AccessCodeInfo is a code record joined with its key and derived status,
// as returned by list operations.
type AccessCodeInfo struct {
	Code string `json:"code"`
	AccessCode
	Status CodeStatus `json:"status"`
}

// AccessLogEntry is one append-only audit record, keyed by a generated
// UUID. Entries are never mutated or deleted.
type AccessLogEntry struct {
	AccessCode string    `json:"access_code"`
	User       string    `json:"user"`
	Action     string    `json:"action"`
	Timestamp  Timestamp `json:"timestamp"`
}

// AccessLogRecord is a log entry joined with its key, as returned by log
// queries.
type AccessLogRecord struct {
	ID string `json:"id"`
	AccessLogEntry
}

// Ledger is the combined code table and audit log. The two tables form a
// single consistency domain: every mutation goes through one exclusive
// load-mutate-save cycle.
type Ledger struct {
	Codes map[string]AccessCode
	Logs  map[string]AccessLogEntry
}

// NewLedger returns an empty ledger with both tables allocated.
func NewLedger() *Ledger {
	return &Ledger{
		Codes: make(map[string]AccessCode),
		Logs:  make(map[string]AccessLogEntry),
	}
}

// CreateAccessCodeParams carries the issuing operation's inputs.
type CreateAccessCodeParams struct {
	AssignedTo  string
	Email       string
	ExpiryDays  int
	Uses        int
	Notes       string
	AccessLevel AccessLevel
}

// ValidationResult is the structured outcome of validating an access code.
// Failure reasons are part of the result, not errors: the operation itself
// succeeded in deciding.
type ValidationResult struct {
	Valid         bool         `json:"valid"`
	Reason        FailReason   `json:"reason,omitempty"`
	Message       string       `json:"message"`
	UserName      string       `json:"user_name,omitempty"`
	AccessLevel   AccessLevel  `json:"access_level,omitempty"`
	Permissions   *Permissions `json:"permissions,omitempty"`
	ExpiresAt     *Timestamp   `json:"expires_at,omitempty"`
	UsesRemaining int          `json:"uses_remaining"`
}

// FailReason classifies why a validation was refused.
type FailReason string

const (
	FailNotFound FailReason = "not_found"
	FailDisabled FailReason = "disabled"
	FailExpired  FailReason = "expired"
	FailDepleted FailReason = "depleted"
)

// UsageStats is the aggregate counter snapshot returned by the stats
// operation.
type UsageStats struct {
	TotalCodes    int `json:"total_codes"`
	ActiveCodes   int `json:"active_codes"`
	ExpiredCodes  int `json:"expired_codes"`
	DisabledCodes int `json:"disabled_codes"`
	DepletedCodes int `json:"depleted_codes"`
	UniqueUsers   int `json:"unique_users"`
	TotalLogins   int `json:"total_logins"`
	RecentLogins  int `json:"recent_logins"`
}
