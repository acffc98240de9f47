// Package learndot implements the client for the Learndot v2 management API.
//
// It covers what is needed to mark a learner's Learndot enrolment as passed
// when they complete a course: contact lookup, enrolment lookup, and the
// status update, with caching of resolved IDs and a persistent status log
// that suppresses redundant updates.
//
// Note that the "enrolment" spelling is intentional; it is Learndot's, and it
// keeps their enrolments distinct from the platform's enrollments.
package learndot

import (
	"bytes"
	"context"
	"crypto/md5" // #nosec G501 -- not used for security, only to shorten cache keys
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/open-craft/learndot-sync/internal/cache"
	"github.com/open-craft/learndot-sync/internal/config"
	"github.com/open-craft/learndot-sync/internal/logger"
	"github.com/open-craft/learndot-sync/internal/statuslog"
)

//go:generate mockgen -destination=mocks/mock_client.go -package=mocks -source=client.go Client

const (
	contactSearchPath   = "api/rest/v2/manage/contact/search"
	enrolmentSearchPath = "api/rest/v2/manage/enrolment/search"
	enrolmentUpdatePath = "api/rest/v2/manage/enrolment/%d"

	// authHeader carries the Learndot API key
	authHeader = "TrainingRocket-Authorization"

	// maxResponseSize bounds how much of a response body is read (10MB)
	maxResponseSize = 10 * 1024 * 1024
)

// Client is the interface for the Learndot v2 management API operations this
// service needs.
type Client interface {
	// GetContactID resolves the Learndot contact for a learner by exact
	// email match. It returns 0 with no error when no contact matches, or
	// when several do; multiple contacts per email cannot be resolved
	// automatically and are logged instead.
	GetContactID(ctx context.Context, learner Learner) (int64, error)

	// GetEnrolmentID resolves the current enrolment for a contact and
	// component: the latest-expiring non-cancelled one. It returns 0 with
	// no error when the contact has no live enrolment for the component.
	GetEnrolmentID(ctx context.Context, contactID, componentID int64) (int64, error)

	// SetEnrolmentStatus pushes a status to an enrolment. Unless
	// unconditional is set, a status already recorded in the status log is
	// not re-sent.
	SetEnrolmentStatus(ctx context.Context, enrolmentID int64, status EnrolmentStatus, unconditional bool) error

	// SetEnrolmentStatusToPassed pushes the PASSED status to an enrolment.
	SetEnrolmentStatusToPassed(ctx context.Context, enrolmentID int64, unconditional bool) error

	// CheckEnrolmentAndSetPassed resolves the current enrolment for a
	// contact and component and marks it PASSED. Having no enrolment to
	// update is not an error.
	CheckEnrolmentAndSetPassed(ctx context.Context, contactID, componentID int64, unconditional bool) error
}

// apiClient is the live implementation of Client.
type apiClient struct {
	baseURL          string
	apiKey           string
	httpClient       *http.Client
	cache            cache.Cache
	cacheTTL         time.Duration
	statusLog        statuslog.Log
	retryWait        time.Duration
	retryMaxAttempts int
}

// NewClient creates a Learndot API client. The cache and status log are
// injected so hosts can share them across workers.
func NewClient(cfg *config.Config, c cache.Cache, log statuslog.Log) Client {
	return &apiClient{
		baseURL: cfg.Learndot.BaseURL,
		apiKey:  cfg.Learndot.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.GetRequestTimeout(),
		},
		cache:            c,
		cacheTTL:         cfg.GetCacheTTL(),
		statusLog:        log,
		retryWait:        cfg.GetRetryWait(),
		retryMaxAttempts: cfg.GetRetryMaxAttempts(),
	}
}

// GetContactID resolves the Learndot contact ID for a learner.
func (c *apiClient) GetContactID(ctx context.Context, learner Learner) (int64, error) {
	logger.Infof("Looking up Learndot contact for user %s", learner)

	cacheKey := contactCacheKey(learner)
	if id, ok := c.cache.Get(cacheKey); ok {
		logger.Infof("Using cached contact ID %d", id)
		return id, nil
	}

	resp, err := doWithRetry(ctx, "contact search", func() (*contactSearchResponse, error) {
		var out contactSearchResponse
		if err := c.post(ctx, "contact search", c.endpoint(contactSearchPath),
			contactSearchRequest{Email: []string{learner.Email}}, &out); err != nil {
			return nil, err
		}
		return &out, nil
	}, c.retryWait, c.retryMaxAttempts)
	if err != nil {
		return 0, err
	}

	// The search endpoint does fuzzy matching, so drop contacts whose email
	// is not an exact match.
	var contacts []Contact
	for _, contact := range resp.Results {
		if contact.Email == learner.Email {
			contacts = append(contacts, contact)
		}
	}

	switch {
	case len(contacts) == 1:
		contactID := contacts[0].ID
		logger.Infof("Caching Learndot contact ID %d for user %s", contactID, learner)
		c.cache.Set(cacheKey, contactID, c.cacheTTL)
		return contactID, nil
	case len(contacts) > 1:
		surfeit := make(map[int64]string, len(contacts))
		for _, contact := range contacts {
			surfeit[contact.ID] = fmt.Sprintf("(%s, %s)", contact.DisplayName, contact.Email)
		}
		logger.Errorf("Multiple Learndot contacts found for user %s: %v", learner, surfeit)
		return 0, nil
	default:
		return 0, nil
	}
}

// GetEnrolmentID resolves the current Learndot enrolment ID for a contact and
// component.
func (c *apiClient) GetEnrolmentID(ctx context.Context, contactID, componentID int64) (int64, error) {
	logger.Infof("Looking up Learndot enrolment for contact %d, component %d", contactID, componentID)

	cacheKey := enrolmentCacheKey(contactID, componentID)
	if id, ok := c.cache.Get(cacheKey); ok {
		logger.Infof("Using cached enrolment ID %d", id)
		return id, nil
	}

	resp, err := doWithRetry(ctx, "enrolment search", func() (*enrolmentSearchResponse, error) {
		var out enrolmentSearchResponse
		if err := c.post(ctx, "enrolment search", c.endpoint(enrolmentSearchPath),
			enrolmentSearchRequest{ContactID: []int64{contactID}, ComponentID: []int64{componentID}}, &out); err != nil {
			return nil, err
		}
		return &out, nil
	}, c.retryWait, c.retryMaxAttempts)
	if err != nil {
		return 0, err
	}

	// Cancelled enrolments are terminal and never the current one.
	var enrolments []Enrolment
	for _, e := range resp.Results {
		if e.Status != StatusCancelled {
			enrolments = append(enrolments, e)
		}
	}

	var enrolmentID int64
	switch {
	case len(enrolments) == 1:
		enrolmentID = enrolments[0].ID
	case len(enrolments) > 1:
		sorted, err := SortEnrolmentsByExpiry(enrolments)
		if err != nil {
			ambErr := &AmbiguousEnrolmentError{ContactID: contactID, ComponentID: componentID, Err: err}
			logger.Error(ambErr.Error())
			return 0, ambErr
		}
		enrolmentID = sorted[len(sorted)-1].ID
		logger.Infof(
			"Multiple enrolments exist for contact %d, component %d. Choosing the one with the latest expiry date: %d",
			contactID, componentID, enrolmentID,
		)
	}

	if enrolmentID != 0 {
		logger.Infof(
			"Caching Learndot enrolment ID %d for contact %d, component %d",
			enrolmentID, contactID, componentID,
		)
		c.cache.Set(cacheKey, enrolmentID, c.cacheTTL)
	}

	return enrolmentID, nil
}

// SetEnrolmentStatus pushes a status transition for an enrolment.
func (c *apiClient) SetEnrolmentStatus(
	ctx context.Context, enrolmentID int64, status EnrolmentStatus, unconditional bool,
) error {
	if enrolmentID == 0 {
		return fmt.Errorf("enrolment ID is required")
	}

	logger.Infof("Setting Learndot enrolment status to %s for enrolment %d", status, enrolmentID)

	if !status.Valid() {
		err := &InvalidStatusError{Status: string(status)}
		logger.Error(err.Error())
		return err
	}

	if !unconditional {
		entry, err := c.statusLog.Get(ctx, enrolmentID)
		if err != nil {
			return fmt.Errorf("failed to check enrolment status log: %w", err)
		}
		if entry != nil && entry.Status == string(status) {
			logger.Infof(
				"Learndot enrolment was logged as set to %s at %s, so skipping update",
				entry.Status, entry.UpdatedAt,
			)
			return nil
		}
	}

	updateURL := c.endpoint(fmt.Sprintf(enrolmentUpdatePath, enrolmentID))
	_, err := doWithRetry(ctx, "enrolment update", func() (struct{}, error) {
		return struct{}{}, c.post(ctx, "enrolment update", updateURL, enrolmentUpdateRequest{Status: status}, nil)
	}, c.retryWait, c.retryMaxAttempts)
	if err != nil {
		return err
	}

	// The remote status is already changed; a bookkeeping failure here only
	// risks one redundant update later, so it must not fail the operation.
	if err := c.statusLog.Upsert(ctx, enrolmentID, string(status)); err != nil {
		logger.Errorf("Error recording enrolment status update: %v", err)
		return nil
	}
	logger.Infof("Recorded status of enrolment %d as %s", enrolmentID, status)

	return nil
}

// SetEnrolmentStatusToPassed pushes the PASSED status to an enrolment.
func (c *apiClient) SetEnrolmentStatusToPassed(ctx context.Context, enrolmentID int64, unconditional bool) error {
	return c.SetEnrolmentStatus(ctx, enrolmentID, StatusPassed, unconditional)
}

// CheckEnrolmentAndSetPassed resolves the current enrolment for a contact and
// component and marks it PASSED, if there is one.
func (c *apiClient) CheckEnrolmentAndSetPassed(
	ctx context.Context, contactID, componentID int64, unconditional bool,
) error {
	enrolmentID, err := c.GetEnrolmentID(ctx, contactID, componentID)
	if err != nil {
		return err
	}
	if enrolmentID == 0 {
		logger.Infof("No enrolment found for contact %d, component %d", contactID, componentID)
		return nil
	}
	return c.SetEnrolmentStatus(ctx, enrolmentID, StatusPassed, unconditional)
}

// post sends a JSON POST request and decodes the response into out, when out
// is non-nil. Non-2xx responses and decode failures become an *APIError.
func (c *apiClient) post(ctx context.Context, op, requestURL string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &APIError{Op: op, Err: fmt.Errorf("failed to encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, bytes.NewReader(payload))
	if err != nil {
		return &APIError{Op: op, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set(authHeader, c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Op: op, Err: fmt.Errorf("failed to execute request: %w", err)}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected response status %q", resp.Status),
		}
	}

	if out == nil {
		return nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return &APIError{Op: op, Err: fmt.Errorf("failed to read response body: %w", err)}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &APIError{Op: op, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	return nil
}

// endpoint joins the base URL with an API path.
func (c *apiClient) endpoint(path string) string {
	joined, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		// The base URL is validated at config load; a join failure here
		// means a malformed path constant.
		return c.baseURL + "/" + path
	}
	return joined
}

// contactCacheKey derives the cache key for a learner's contact lookup. The
// email is hashed so addresses do not leak into shared cache keys.
func contactCacheKey(learner Learner) string {
	hashedEmail := md5.Sum([]byte(learner.Email)) // #nosec G401 -- cache key shortening only
	return fmt.Sprintf("learndot-contact-%s-%d", hex.EncodeToString(hashedEmail[:]), learner.ID)
}

// enrolmentCacheKey derives the cache key for an enrolment lookup.
func enrolmentCacheKey(contactID, componentID int64) string {
	return fmt.Sprintf("learndot-enrolment-%d-%d", contactID, componentID)
}
