package domain

import (
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Normalize maps a raw upstream entry onto the canonical User. An
// unrecognized status is returned alongside the Pending record so the caller
// can decide whether to log it.
func Normalize(r RawUser, now time.Time) (User, error) {
	status, err := r.LicenseStatus()

	id := r.ID.Value
	if !r.ID.Set || id == 0 {
		id = r.UserID.Value
	}

	method := strings.TrimSpace(string(r.UserType))
	if method == "" {
		method = "Email"
	}

	return User{
		ID:                 id,
		FullName:           string(r.FirstName) + " " + string(r.LastName),
		Email:              string(r.Email),
		Phone:              string(r.Phone),
		RegistrationMethod: method,
		VehicleDetails:     VehicleDetails(r),
		LicenseStatus:      status,
		RegistrationDate:   registrationDate(r.CreatedAt, now),
	}, err
}

// VehicleDetails renders "model - color - plate letters".
func VehicleDetails(r RawUser) string {
	s := string(r.CarModel) + " - " + string(r.CarColor) + " - " + string(r.PlateNumber) + " " + string(r.Letters)
	return strings.TrimSpace(s)
}

func registrationDate(createdAt FlexString, now time.Time) string {
	if d, ok := createdDay(createdAt); ok {
		return d
	}
	return now.Format(dateLayout)
}

// createdDay returns the YYYY-MM-DD prefix of created_at when it is a date.
func createdDay(createdAt FlexString) (string, bool) {
	s := strings.TrimSpace(string(createdAt))
	if len(s) < len(dateLayout) {
		return "", false
	}
	day := s[:len(dateLayout)]
	if _, err := time.Parse(dateLayout, day); err != nil {
		return "", false
	}
	return day, true
}
