package model

// AccessLevel is the permission tier an access code grants.
type AccessLevel string

const (
	AccessLevelStandard AccessLevel = "standard"
	AccessLevelAdmin    AccessLevel = "admin"
	AccessLevelReadOnly AccessLevel = "read_only"
)

// Permissions is the static capability set attached to an access level.
type Permissions struct {
	CanUploadImages    bool `json:"can_upload_images"`
	CanGenerateReports bool `json:"can_generate_reports"`
	CanAccessAdmin     bool `json:"can_access_admin"`
	CanModifyData      bool `json:"can_modify_data"`
}

// accessLevelPermissions is the sole authorization decision surface.
// It is a fixed lookup table, not user-editable.
var accessLevelPermissions = map[AccessLevel]Permissions{
	AccessLevelStandard: {
		CanUploadImages:    true,
		CanGenerateReports: true,
	},
	AccessLevelAdmin: {
		CanUploadImages:    true,
		CanGenerateReports: true,
		CanAccessAdmin:     true,
		CanModifyData:      true,
	},
	AccessLevelReadOnly: {},
}

// Valid reports whether the level is one of the fixed enumeration.
func (l AccessLevel) Valid() bool {
	_, ok := accessLevelPermissions[l]
	return ok
}

// Permissions returns the static permission set for the level. Unknown
// levels fall back to the standard set, mirroring the lookup used at
// validation time.
func (l AccessLevel) Permissions() Permissions {
	if p, ok := accessLevelPermissions[l]; ok {
		return p
	}
	return accessLevelPermissions[AccessLevelStandard]
}

// CodeStatus is the derived lifecycle label reported by list operations.
type CodeStatus string

const (
	CodeStatusActive   CodeStatus = "active"
	CodeStatusExpired  CodeStatus = "expired"
	CodeStatusDisabled CodeStatus = "disabled"
	CodeStatusDepleted CodeStatus = "depleted"
)
