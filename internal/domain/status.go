package domain

import (
	"fmt"
	"strings"
)

// ParseLicenseStatus maps an upstream status value onto the canonical set.
// Blank values are Pending. Unrecognized values are also reported as Pending,
// but together with ErrUnknownLicenseStatus so callers can log the drift.
func ParseLicenseStatus(v string) (LicenseStatus, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "":
		return LicensePending, nil
	case "pending":
		return LicensePending, nil
	case "approved", "verified":
		return LicenseVerified, nil
	case "rejected":
		return LicenseRejected, nil
	default:
		return LicensePending, fmt.Errorf("%w: %q", ErrUnknownLicenseStatus, v)
	}
}

// ParseDecision accepts "approved" or "rejected" in any case.
func ParseDecision(v string) (Decision, error) {
	switch Decision(strings.ToLower(strings.TrimSpace(v))) {
	case DecisionApproved:
		return DecisionApproved, nil
	case DecisionRejected:
		return DecisionRejected, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDecision, v)
	}
}

// Status is the status a record takes once the upstream accepted the decision.
func (d Decision) Status() LicenseStatus {
	switch d {
	case DecisionApproved:
		return LicenseVerified
	case DecisionRejected:
		return LicenseRejected
	default:
		return LicensePending
	}
}
