package downstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/baechuer/roadside-admin/internal/domain"
	"github.com/baechuer/roadside-admin/internal/logger"
)

// DirectoryClient talks to the roadside user directory: the user collection,
// license lookups, license decisions and login.
type DirectoryClient struct {
	baseURL string
	http    *Client
	now     func() time.Time
}

func NewDirectoryClient(baseURL string, httpClient *Client) *DirectoryClient {
	if httpClient == nil {
		httpClient = NewClient(DefaultClientConfig())
	}
	return &DirectoryClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		now:     time.Now,
	}
}

// WithClock replaces the clock used for registration-date defaults.
func (c *DirectoryClient) WithClock(now func() time.Time) *DirectoryClient {
	c.now = now
	return c
}

// FetchRawUsers retrieves the full collection without normalizing it.
func (c *DirectoryClient) FetchRawUsers(ctx context.Context) ([]domain.RawUser, error) {
	resp, err := c.http.Get(ctx, c.baseURL+"/", map[string]string{"Accept": "application/json"})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	var env domain.UsersEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: decode users: %v", ErrBadPayload, err)
	}
	users, bad, err := env.Users()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if bad > 0 {
		logger.Ctx(ctx).Warn().Int("skipped", bad).Int("kept", len(users)).Msg("directory_records_malformed")
	}
	return users, nil
}

// FetchAllUsers retrieves and normalizes the full collection.
func (c *DirectoryClient) FetchAllUsers(ctx context.Context) ([]domain.User, error) {
	raws, err := c.FetchRawUsers(ctx)
	if err != nil {
		return nil, err
	}
	return c.normalize(ctx, raws), nil
}

// SearchUsers filters the collection client-side; the upstream has no search
// endpoint. An empty query is the same as FetchAllUsers.
func (c *DirectoryClient) SearchUsers(ctx context.Context, query string) ([]domain.User, error) {
	if domain.NormalizeQuery(query) == "" {
		return c.FetchAllUsers(ctx)
	}
	raws, err := c.FetchRawUsers(ctx)
	if err != nil {
		return nil, err
	}
	return c.normalize(ctx, domain.FilterUsers(raws, query)), nil
}

func (c *DirectoryClient) normalize(ctx context.Context, raws []domain.RawUser) []domain.User {
	now := c.now()
	users := make([]domain.User, 0, len(raws))
	for _, r := range raws {
		u, err := domain.Normalize(r, now)
		if err != nil {
			logger.Ctx(ctx).Warn().
				Err(err).
				Str("email", u.Email).
				Msg("directory_record_status_unrecognized")
		}
		users = append(users, u)
	}
	return users
}

type licenseResponse struct {
	Status       string  `json:"status"`
	FrontURL     *string `json:"front_image_url"`
	ImageURL     *string `json:"imageUrl"`
	URL          *string `json:"url"`
	BackImageURL *string `json:"back_image_url"`
}

func firstURL(candidates ...*string) *string {
	for _, c := range candidates {
		if c != nil && strings.TrimSpace(*c) != "" {
			v := *c
			return &v
		}
	}
	return nil
}

// LookupLicense fetches the license status and scans for one email.
func (c *DirectoryClient) LookupLicense(ctx context.Context, email string) (*domain.LicenseInfo, error) {
	body, err := json.Marshal(map[string]string{"email": strings.TrimSpace(email)})
	if err != nil {
		return nil, err
	}

	resp, err := c.http.DoWithBody(ctx, http.MethodPost, c.baseURL+"/get-license", bytes.NewReader(body), map[string]string{
		"Content-Type": "application/json",
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	var lr licenseResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return nil, fmt.Errorf("%w: decode license: %v", ErrBadPayload, err)
	}

	return &domain.LicenseInfo{
		Status: lr.Status,
		Images: domain.LicenseImages{
			Front: firstURL(lr.FrontURL, lr.ImageURL, lr.URL),
			Back:  firstURL(lr.BackImageURL),
		},
	}, nil
}

// GetLicenseImages never fails: any lookup error yields two absent images.
func (c *DirectoryClient) GetLicenseImages(ctx context.Context, email string) domain.LicenseImages {
	info, err := c.LookupLicense(ctx, email)
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("email", email).Msg("license_images_unavailable")
		return domain.LicenseImages{}
	}
	return info.Images
}

// UpdateLicenseStatus records a reviewer decision upstream.
func (c *DirectoryClient) UpdateLicenseStatus(ctx context.Context, email string, decision domain.Decision) error {
	body, err := json.Marshal(map[string]string{
		"email":  email,
		"status": string(decision),
	})
	if err != nil {
		return err
	}

	resp, err := c.http.DoWithBody(ctx, http.MethodPost, c.baseURL+"/update-license-status", bytes.NewReader(body), map[string]string{
		"Content-Type": "application/json",
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	return nil
}

// Login exchanges credentials for the upstream's opaque bearer token.
func (c *DirectoryClient) Login(ctx context.Context, username, password string) (string, error) {
	body, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return "", err
	}

	resp, err := c.http.DoWithBody(ctx, http.MethodPost, c.baseURL+"/login", bytes.NewReader(body), map[string]string{
		"Content-Type": "application/json",
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", decodeError(resp)
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode login: %v", ErrBadPayload, err)
	}
	if out.Token == "" {
		return "", ErrUnauthorized
	}
	return out.Token, nil
}
