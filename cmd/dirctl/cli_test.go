package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type directoryStub struct {
	mu      sync.Mutex
	auth    []string
	updates []map[string]string
}

func (s *directoryStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.auth = append(s.auth, r.Header.Get("Authorization"))
	s.mu.Unlock()

	switch r.URL.Path {
	case "/api/":
		w.Write([]byte(`{"data":{"users":[
			{"id":7,"first_name":"Carla","last_name":"Dias","email":"carla@example.com","car_model":"Uno","car_color":"White","plate_number":"77","letters":"XY","user_type":"Email","created_at":"2026-09-01"},
			{"User_id":8,"first_name":"Davi","last_name":"Reis","email":"davi@example.com","user_type":"google","created_at":"2026-09-02"}
		]}}`))
	case "/api/get-license":
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["email"] == "carla@example.com" {
			w.Write([]byte(`{"status":"approved","front_image_url":"https://cdn.example.com/c-front.png","back_image_url":"https://cdn.example.com/c-back.png"}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	case "/api/update-license-status":
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		s.mu.Lock()
		s.updates = append(s.updates, body)
		s.mu.Unlock()
		w.Write([]byte(`{"message":"updated"}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestUsersList_JSON(t *testing.T) {
	stub := &directoryStub{}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	out, err := run(t, "--url", srv.URL+"/api", "--token", "tok", "-o", "json", "users", "list")
	require.NoError(t, err)

	var users []struct {
		ID            int64  `json:"id"`
		Email         string `json:"email"`
		LicenseStatus string `json:"licenseStatus"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &users))
	require.Len(t, users, 2)
	assert.Equal(t, int64(7), users[0].ID)
	assert.Equal(t, "Verified", users[0].LicenseStatus)
	assert.Equal(t, int64(8), users[1].ID)
	// Lookup failed for davi: isolated to that record.
	assert.Equal(t, "Pending", users[1].LicenseStatus)

	stub.mu.Lock()
	defer stub.mu.Unlock()
	for _, h := range stub.auth {
		assert.Equal(t, "Bearer tok", h)
	}
}

func TestUsersSearch_Table(t *testing.T) {
	srv := httptest.NewServer(&directoryStub{})
	defer srv.Close()

	out, err := run(t, "--url", srv.URL+"/api", "users", "search", "  REIS ", "--no-enrich")
	require.NoError(t, err)
	assert.Contains(t, out, "Davi Reis")
	assert.NotContains(t, out, "Carla Dias")
	assert.Contains(t, out, "1 user(s)")
}

func TestLicenseShow(t *testing.T) {
	srv := httptest.NewServer(&directoryStub{})
	defer srv.Close()

	out, err := run(t, "--url", srv.URL+"/api", "license", "show", "carla@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "status: Verified")
	assert.Contains(t, out, "front:  https://cdn.example.com/c-front.png")
	assert.Contains(t, out, "back:   https://cdn.example.com/c-back.png")
}

func TestLicenseDecision(t *testing.T) {
	stub := &directoryStub{}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	out, err := run(t, "--url", srv.URL+"/api", "license", "reject", "davi@example.com")
	require.NoError(t, err)
	assert.Equal(t, "davi@example.com -> Rejected\n", out)

	stub.mu.Lock()
	defer stub.mu.Unlock()
	require.Len(t, stub.updates, 1)
	assert.Equal(t, map[string]string{"email": "davi@example.com", "status": "rejected"}, stub.updates[0])
}

func TestRejectsUnknownOutput(t *testing.T) {
	_, err := run(t, "--url", "http://127.0.0.1:1", "-o", "yaml", "users", "list")
	assert.ErrorContains(t, err, "unknown output format")
}
