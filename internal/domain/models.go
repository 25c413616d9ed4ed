package domain

import "errors"

var (
	ErrUnexpectedShape      = errors.New("unexpected_shape")
	ErrUnknownLicenseStatus = errors.New("unknown_license_status")
	ErrInvalidDecision      = errors.New("invalid_decision")
)

type LicenseStatus string

const (
	LicensePending  LicenseStatus = "Pending"
	LicenseVerified LicenseStatus = "Verified"
	LicenseRejected LicenseStatus = "Rejected"
)

// User is the canonical directory record shown to reviewers.
type User struct {
	ID                 int64         `json:"id"`
	FullName           string        `json:"fullName"`
	Email              string        `json:"email"`
	Phone              string        `json:"phone,omitempty"`
	RegistrationMethod string        `json:"registrationMethod"`
	VehicleDetails     string        `json:"vehicleDetails"`
	LicenseStatus      LicenseStatus `json:"licenseStatus"`
	RegistrationDate   string        `json:"registrationDate"`
}

// LicenseImages holds the front/back scans of a driving license. A nil field
// means the image is absent.
type LicenseImages struct {
	Front *string `json:"front"`
	Back  *string `json:"back"`
}

// LicenseInfo is what the upstream returns for a single license lookup.
type LicenseInfo struct {
	Status string
	Images LicenseImages
}

type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

type APIError struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}
