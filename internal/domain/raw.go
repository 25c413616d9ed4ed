package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FlexString accepts a JSON string, number, bool or null. The upstream is not
// consistent about phone and plate numbers. Objects and arrays decode as
// empty rather than failing the record.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*f = ""
	if len(b) == 0 {
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err == nil {
			*f = FlexString(s)
		}
	case 't', 'f':
		*f = FlexString(b)
	case 'n', '{', '[':
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err == nil {
			*f = FlexString(n.String())
		}
	}
	return nil
}

func (f FlexString) String() string { return string(f) }

// FlexInt accepts a JSON integer or a numeric string. Set reports whether a
// usable value was present; anything else leaves it unset.
type FlexInt struct {
	Value int64
	Set   bool
}

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	*f = FlexInt{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil
	}
	raw := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return nil
		}
		raw = strings.TrimSpace(raw)
	}
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*f = FlexInt{Value: v, Set: true}
	}
	return nil
}

// RawUser is one entry of the upstream collection, as sent on the wire.
type RawUser struct {
	ID          FlexInt    `json:"id"`
	UserID      FlexInt    `json:"User_id"`
	FirstName   FlexString `json:"first_name"`
	LastName    FlexString `json:"last_name"`
	Email       FlexString `json:"email"`
	Phone       FlexString `json:"phone"`
	CarModel    FlexString `json:"car_model"`
	CarColor    FlexString `json:"car_color"`
	PlateNumber FlexString `json:"plate_number"`
	Letters     FlexString `json:"letters"`
	UserType    FlexString `json:"user_type"`
	CreatedAt   FlexString `json:"created_at"`

	// Status-like fields, in lookup priority order.
	LicenseStatusField FlexString `json:"license_status"`
	Status             FlexString `json:"status"`
	LicenseStatusCamel FlexString `json:"licenseStatus"`
	State              FlexString `json:"state"`
}

// UsersEnvelope is the body of GET / on the directory upstream. Entries are
// kept raw so one malformed record cannot fail the whole collection.
type UsersEnvelope struct {
	Data *struct {
		Users *[]json.RawMessage `json:"users"`
	} `json:"data"`
}

// Users decodes the collection. Entries that are not JSON objects are
// skipped and counted in bad. ErrUnexpectedShape is returned when the body
// is missing data.users.
func (e UsersEnvelope) Users() (users []RawUser, bad int, err error) {
	if e.Data == nil || e.Data.Users == nil {
		return nil, 0, ErrUnexpectedShape
	}
	users = make([]RawUser, 0, len(*e.Data.Users))
	for _, entry := range *e.Data.Users {
		var r RawUser
		if err := json.Unmarshal(entry, &r); err != nil {
			bad++
			continue
		}
		users = append(users, r)
	}
	return users, bad, nil
}

// LicenseStatus resolves the record's status from the first non-blank of
// license_status, status, licenseStatus and state. A record with none of
// them is Pending.
func (r RawUser) LicenseStatus() (LicenseStatus, error) {
	for _, v := range []FlexString{r.LicenseStatusField, r.Status, r.LicenseStatusCamel, r.State} {
		if strings.TrimSpace(string(v)) != "" {
			return ParseLicenseStatus(string(v))
		}
	}
	return LicensePending, nil
}
