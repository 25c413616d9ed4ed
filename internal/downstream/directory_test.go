package downstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/roadside-admin/internal/domain"
)

var fixedNow = time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

func newTestDirectory(t *testing.T, h http.HandlerFunc) *DirectoryClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewDirectoryClient(srv.URL+"/api", NewClient(DefaultClientConfig())).
		WithClock(func() time.Time { return fixedNow })
}

const usersBody = `{"data":{"users":[
	{"id":1,"first_name":"Ana","last_name":"Silva","email":"ana@example.com","phone":"+351 912","car_model":"Civic","car_color":"Blue","plate_number":"123","letters":"ABC","user_type":"google","created_at":"2026-10-16T08:00:00Z","license_status":"approved"},
	{"id":"2","first_name":"Bruno","last_name":"Costa","email":"bruno@example.com","user_type":"","created_at":"garbage","status":"on_hold"}
]}}`

func TestFetchAllUsers_Normalizes(t *testing.T) {
	c := newTestDirectory(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		w.Write([]byte(usersBody))
	})

	users, err := c.FetchAllUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)

	assert.Equal(t, domain.User{
		ID:                 1,
		FullName:           "Ana Silva",
		Email:              "ana@example.com",
		Phone:              "+351 912",
		RegistrationMethod: "google",
		VehicleDetails:     "Civic - Blue - 123 ABC",
		LicenseStatus:      domain.LicenseVerified,
		RegistrationDate:   "2026-10-16",
	}, users[0])

	assert.Equal(t, int64(2), users[1].ID)
	assert.Equal(t, "Email", users[1].RegistrationMethod)
	assert.Equal(t, domain.LicensePending, users[1].LicenseStatus)
	assert.Equal(t, "2026-10-17", users[1].RegistrationDate)
}

func TestFetchRawUsers_UnexpectedShape(t *testing.T) {
	for name, body := range map[string]string{
		"no data":    `{"users":[]}`,
		"no users":   `{"data":{}}`,
		"not json":   `<html>`,
		"users null": `{"data":{"users":null}}`,
	} {
		t.Run(name, func(t *testing.T) {
			c := newTestDirectory(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			})
			_, err := c.FetchRawUsers(context.Background())
			assert.ErrorIs(t, err, ErrBadPayload)
		})
	}
}

func TestFetchAllUsers_MalformedEntryKeepsBatch(t *testing.T) {
	c := newTestDirectory(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"users":[
			{"id":1,"first_name":"Ana","email":"ana@example.com"},
			{"id":"u-2","User_id":2,"first_name":"Bruno","email":"bruno@example.com","letters":true},
			null,
			{"id":3,"first_name":"Carla","email":"carla@example.com"}
		]}}`))
	})

	users, err := c.FetchAllUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 4)

	assert.Equal(t, int64(1), users[0].ID)
	assert.Equal(t, int64(2), users[1].ID)
	assert.Equal(t, "bruno@example.com", users[1].Email)
	assert.Equal(t, "-  -  true", users[1].VehicleDetails)
	assert.Equal(t, int64(3), users[3].ID)
}

func TestFetchRawUsers_StatusErrors(t *testing.T) {
	tests := []struct {
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{http.StatusUnauthorized, ``, func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrUnauthorized) }},
		{http.StatusNotFound, ``, func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrNotFound) }},
		{http.StatusInternalServerError, `{"message":"db down"}`, func(t *testing.T, err error) {
			var se *StatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, "db down", se.Message)
			assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
		}},
	}
	for _, tt := range tests {
		c := newTestDirectory(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			w.Write([]byte(tt.body))
		})
		_, err := c.FetchRawUsers(context.Background())
		tt.check(t, err)
	}
}

func TestSearchUsers_FiltersBeforeNormalizing(t *testing.T) {
	c := newTestDirectory(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(usersBody))
	})

	users, err := c.SearchUsers(context.Background(), " CIV ic")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "ana@example.com", users[0].Email)

	users, err = c.SearchUsers(context.Background(), "   ")
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestLookupLicense_ImageFallbacks(t *testing.T) {
	c := newTestDirectory(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/get-license", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		switch body["email"] {
		case "a@example.com":
			w.Write([]byte(`{"status":"approved","front_image_url":"f","back_image_url":"b"}`))
		case "b@example.com":
			w.Write([]byte(`{"status":"pending","imageUrl":"legacy"}`))
		default:
			w.Write([]byte(`{"status":"rejected","front_image_url":"","url":"plain"}`))
		}
	})
	ctx := context.Background()

	info, err := c.LookupLicense(ctx, " a@example.com ")
	require.NoError(t, err)
	assert.Equal(t, "approved", info.Status)
	assert.Equal(t, "f", *info.Images.Front)
	assert.Equal(t, "b", *info.Images.Back)

	info, err = c.LookupLicense(ctx, "b@example.com")
	require.NoError(t, err)
	assert.Equal(t, "legacy", *info.Images.Front)
	assert.Nil(t, info.Images.Back)

	info, err = c.LookupLicense(ctx, "c@example.com")
	require.NoError(t, err)
	assert.Equal(t, "plain", *info.Images.Front)
}

func TestGetLicenseImages_SoftFails(t *testing.T) {
	c := newTestDirectory(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	images := c.GetLicenseImages(context.Background(), "a@example.com")
	assert.Nil(t, images.Front)
	assert.Nil(t, images.Back)
}

func TestUpdateLicenseStatus(t *testing.T) {
	var got map[string]string
	c := newTestDirectory(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/update-license-status", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		if got["email"] == "locked@example.com" {
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"error":"license locked"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, c.UpdateLicenseStatus(context.Background(), "a@example.com", domain.DecisionRejected))
	assert.Equal(t, map[string]string{"email": "a@example.com", "status": "rejected"}, got)

	err := c.UpdateLicenseStatus(context.Background(), "locked@example.com", domain.DecisionApproved)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "license locked", se.Message)
}

func TestLogin(t *testing.T) {
	c := newTestDirectory(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		switch body["password"] {
		case "right":
			w.Write([]byte(`{"token":"abc"}`))
		case "empty":
			w.Write([]byte(`{"token":""}`))
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	})
	ctx := context.Background()

	tok, err := c.Login(ctx, "ops", "right")
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	_, err = c.Login(ctx, "ops", "wrong")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = c.Login(ctx, "ops", "empty")
	assert.ErrorIs(t, err, ErrUnauthorized)
}
