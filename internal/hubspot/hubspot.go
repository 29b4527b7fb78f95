package hubspot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/joomcode/errorx"
	"go.dfds.cloud/intercom-hubspot-sync/internal/intercom"
	"go.dfds.cloud/intercom-hubspot-sync/internal/util"
	"go.uber.org/zap"
)

const DEFAULT_BASE_URL = "https://api.hubapi.com"
const DEFAULT_EXTERNAL_ID_PROPERTY = "intercom_id"
const ASSOCIATION_TYPE_CONTACT_TO_COMPANY = "contact_to_company"

type Client struct {
	httpClient *http.Client
	config     Config
}

type Config struct {
	BaseUrl            string `json:"baseUrl"`
	AccessToken        string `json:"accessToken"`
	ExternalIdProperty string `json:"externalIdProperty"`
	SearchRetries      uint64 `json:"searchRetries"`
	SearchBackoff      time.Duration
	Timeout            time.Duration
}

func NewHubSpotClient(conf Config) *Client {
	if conf.BaseUrl == "" {
		conf.BaseUrl = DEFAULT_BASE_URL
	}
	conf.BaseUrl = strings.TrimSuffix(conf.BaseUrl, "/")
	if conf.ExternalIdProperty == "" {
		conf.ExternalIdProperty = DEFAULT_EXTERNAL_ID_PROPERTY
	}
	if conf.SearchBackoff <= 0 {
		conf.SearchBackoff = 500 * time.Millisecond
	}

	return &Client{
		httpClient: &http.Client{Timeout: conf.Timeout},
		config:     conf,
	}
}

func (c *Client) objectsUrl(objectType string) string {
	return fmt.Sprintf("%s/crm/v3/objects/%s", c.config.BaseUrl, objectType)
}

func (c *Client) newJsonRequest(ctx context.Context, method string, url string, body interface{}) (*http.Request, error) {
	serialised, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewBuffer(serialised))
	if err != nil {
		return nil, err
	}
	util.PrepareJsonRequest(req, c.config.AccessToken)

	return req, nil
}

// FindByExternalId returns the first record of objectType whose external id
// property equals externalId. No match yields a RecordNotFound error; a search
// that keeps failing after the configured retries yields SearchFailed.
func (c *Client) FindByExternalId(ctx context.Context, objectType string, externalId string) (*Record, error) {
	searchReq := SearchRequest{
		FilterGroups: []FilterGroup{
			{
				Filters: []Filter{
					{
						PropertyName: c.config.ExternalIdProperty,
						Operator:     "EQ",
						Value:        externalId,
					},
				},
			},
		},
		Properties: []string{"hs_object_id", c.config.ExternalIdProperty},
		Limit:      1,
	}

	var payload *SearchResponse
	operation := func() error {
		req, err := c.newJsonRequest(ctx, "POST", c.objectsUrl(objectType)+"/search", searchReq)
		if err != nil {
			return backoff.Permanent(err)
		}

		payload, err = util.DoRequest[SearchResponse](c.httpClient, req, nil)
		if err != nil {
			err = toApiError(err)
			if isTransient(ctx, err) {
				return err
			}
			return backoff.Permanent(err)
		}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		util.Logger.Warn("HubSpot search failed, retrying", zap.String("objectType", objectType), zap.String("intercomId", externalId), zap.Duration("wait", wait), zap.Error(err))
	}

	err := backoff.RetryNotify(operation, backoff.WithContext(backoff.WithMaxRetries(c.newSearchBackOff(), c.config.SearchRetries), ctx), notify)
	if err != nil {
		return nil, SearchFailed.Wrap(err, "search for %s with %s=%s failed", objectType, c.config.ExternalIdProperty, externalId)
	}

	if payload == nil || len(payload.Results) == 0 {
		return nil, RecordNotFound.New("no %s with %s=%s", objectType, c.config.ExternalIdProperty, externalId)
	}

	return payload.Results[0], nil
}

func (c *Client) newSearchBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.config.SearchBackoff
	b.MaxElapsedTime = 0
	return b
}

// UpsertRecord updates the record carrying externalId, or creates it when the
// search finds nothing. A failed search is returned as is and nothing is created.
func (c *Client) UpsertRecord(ctx context.Context, objectType string, externalId string, properties map[string]string) (*UpsertResult, error) {
	input := RecordInput{Properties: make(map[string]string, len(properties)+1)}
	for k, v := range properties {
		input.Properties[k] = v
	}
	input.Properties[c.config.ExternalIdProperty] = externalId

	existing, err := c.FindByExternalId(ctx, objectType, externalId)
	if err != nil && !errorx.IsOfType(err, RecordNotFound) {
		util.Logger.Error(fmt.Sprintf("Lookup failed for %s %s, not creating", objectType, externalId), zap.String("objectType", objectType), zap.String("intercomId", externalId), zap.Error(err))
		return nil, err
	}

	if existing != nil {
		req, err := c.newJsonRequest(ctx, "PATCH", fmt.Sprintf("%s/%s", c.objectsUrl(objectType), existing.ID), input)
		if err != nil {
			return nil, err
		}

		record, err := util.DoRequest[Record](c.httpClient, req, nil)
		if err != nil {
			err = toApiError(err)
			util.Logger.Error(fmt.Sprintf("Update failed for %s %s", objectType, existing.ID), zap.String("objectType", objectType), zap.String("hubspotId", existing.ID), zap.Error(err))
			return nil, HttpError.Wrap(err, "update %s %s", objectType, existing.ID)
		}
		if record == nil {
			record = &Record{}
		}
		if record.ID == "" {
			record.ID = existing.ID
		}

		util.Logger.Debug(fmt.Sprintf("Updated %s %s", objectType, record.ID), zap.String("objectType", objectType), zap.String("hubspotId", record.ID), zap.String("intercomId", externalId))
		return &UpsertResult{Action: ActionUpdated, Record: record}, nil
	}

	req, err := c.newJsonRequest(ctx, "POST", c.objectsUrl(objectType), input)
	if err != nil {
		return nil, err
	}

	record, err := util.DoRequest[Record](c.httpClient, req, nil)
	if err != nil {
		err = toApiError(err)
		util.Logger.Error(fmt.Sprintf("Create failed for %s", objectType), zap.String("objectType", objectType), zap.String("intercomId", externalId), zap.Error(err))
		return nil, HttpError.Wrap(err, "create %s", objectType)
	}
	if record == nil || record.ID == "" {
		util.Logger.Error(fmt.Sprintf("Create of %s returned no id", objectType), zap.String("objectType", objectType), zap.String("intercomId", externalId))
		return nil, HttpError.New("create %s returned no record id", objectType)
	}

	util.Logger.Debug(fmt.Sprintf("Created %s %s", objectType, record.ID), zap.String("objectType", objectType), zap.String("hubspotId", record.ID), zap.String("intercomId", externalId))
	return &UpsertResult{Action: ActionCreated, Record: record}, nil
}

func (c *Client) UpsertContact(ctx context.Context, user intercom.User) (*UpsertResult, error) {
	props := map[string]string{
		"email":     user.Email,
		"firstname": user.Name,
		"lastname":  user.LastName,
		"phone":     user.Phone,
	}
	return c.UpsertRecord(ctx, ObjectTypeContacts, user.ID, props)
}

func (c *Client) UpsertCompany(ctx context.Context, company intercom.Company) (*UpsertResult, error) {
	props := map[string]string{
		"name":    company.Name,
		"website": company.Website,
	}
	return c.UpsertRecord(ctx, ObjectTypeCompanies, company.ID, props)
}

// CreateAssociation links a contact to a company. An association that already
// exists counts as success.
func (c *Client) CreateAssociation(ctx context.Context, contactId string, companyId string) error {
	payload := AssociationBatchRequest{
		Inputs: []AssociationInput{
			{
				From: ObjectId{ID: contactId},
				To:   ObjectId{ID: companyId},
				Type: ASSOCIATION_TYPE_CONTACT_TO_COMPANY,
			},
		},
	}

	req, err := c.newJsonRequest(ctx, "POST", fmt.Sprintf("%s/crm/v4/associations/contacts/companies/batch/create", c.config.BaseUrl), payload)
	if err != nil {
		return err
	}

	_, _, err = util.DoRequestWithResp[AssociationBatchResponse](c.httpClient, req, associationRequestFuncs())
	if errors.Is(err, errAssociationExists) {
		util.Logger.Debug(fmt.Sprintf("Association already exists: contact %s & company %s", contactId, companyId))
		return nil
	}
	if err != nil {
		util.Logger.Error("Association failed", zap.String("contactId", contactId), zap.String("companyId", companyId), zap.Error(err))
		return AssociationFailed.Wrap(err, "contact %s -> company %s", contactId, companyId)
	}

	util.Logger.Debug(fmt.Sprintf("Associated contact %s -> company %s", contactId, companyId))
	return nil
}

var errAssociationExists = errors.New("association already exists")

// associationRequestFuncs turns a CONFLICT answer, either as an error response
// or as a multi-status made only of CONFLICT errors, into errAssociationExists.
func associationRequestFuncs() *util.RequestFuncs {
	rf := util.NewRequestFuncs()
	rf.PostResponse = func(req *http.Request, resp *http.Response) error {
		err := toApiError(util.ExpectSuccess(resp))
		var apiErr *ApiError
		if errors.As(err, &apiErr) && apiErr.IsConflict() {
			return errAssociationExists
		}
		return err
	}
	rf.PostDeserialise = func(req *http.Request, resp *http.Response, data interface{}) error {
		batchResp, ok := data.(*AssociationBatchResponse)
		if !ok || batchResp == nil || len(batchResp.Errors) == 0 {
			return nil
		}
		if batchResp.AllConflicts() {
			return errAssociationExists
		}
		return fmt.Errorf("%d of the batch failed: %s", len(batchResp.Errors), batchResp.Errors[0].Message)
	}
	return rf
}

func decodeApiError(statusCode int, body []byte) *ApiError {
	apiErr := &ApiError{}
	if err := json.Unmarshal(body, apiErr); err != nil {
		apiErr = &ApiError{Message: strings.TrimSpace(string(body))}
	}
	apiErr.StatusCode = statusCode
	return apiErr
}

func toApiError(err error) error {
	var statusErr *util.UnexpectedStatusError
	if errors.As(err, &statusErr) {
		return decodeApiError(statusErr.StatusCode, statusErr.Body)
	}
	return err
}

func isTransient(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}

	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		return apiErr.IsTransient()
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return false
	}

	// transport level failure
	return true
}
