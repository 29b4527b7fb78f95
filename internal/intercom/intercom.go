package intercom

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.dfds.cloud/intercom-hubspot-sync/internal/util"
	"go.uber.org/zap"
)

const DEFAULT_BASE_URL = "https://api.intercom.io"
const DEFAULT_API_VERSION = "2.11"

type Client struct {
	httpClient *http.Client
	config     Config
}

type Config struct {
	BaseUrl     string `json:"baseUrl"`
	AccessToken string `json:"accessToken"`
	ApiVersion  string `json:"apiVersion"`
	PerPage     int    `json:"perPage"`
	Timeout     time.Duration
}

func NewIntercomClient(conf Config) *Client {
	if conf.BaseUrl == "" {
		conf.BaseUrl = DEFAULT_BASE_URL
	}
	conf.BaseUrl = strings.TrimSuffix(conf.BaseUrl, "/")
	if conf.ApiVersion == "" {
		conf.ApiVersion = DEFAULT_API_VERSION
	}

	return &Client{
		httpClient: &http.Client{Timeout: conf.Timeout},
		config:     conf,
	}
}

func (c *Client) prepareHttpRequest(req *http.Request) {
	util.PrepareBearerRequest(req, c.config.AccessToken)
	req.Header.Set("Intercom-Version", c.config.ApiVersion)
}

// FetchAllUsers returns every contact. If a page fails, the contacts gathered so
// far are returned together with the error.
func (c *Client) FetchAllUsers(ctx context.Context) ([]User, error) {
	return fetchAllPaginated[User](ctx, c, "/contacts")
}

// FetchAllCompanies behaves like FetchAllUsers for companies.
func (c *Client) FetchAllCompanies(ctx context.Context) ([]Company, error) {
	return fetchAllPaginated[Company](ctx, c, "/companies")
}

// GetUsersByCompany fetches a single page of contacts belonging to the company.
// On failure an empty slice is returned alongside the error.
func (c *Client) GetUsersByCompany(ctx context.Context, companyId string) ([]User, error) {
	reqUrl, err := url.Parse(c.config.BaseUrl + "/contacts")
	if err != nil {
		return []User{}, err
	}
	query := reqUrl.Query()
	query.Set("company_id", companyId)
	reqUrl.RawQuery = query.Encode()

	page, err := getPage[User](ctx, c, reqUrl.String())
	if err != nil {
		util.Logger.Error(fmt.Sprintf("Error fetching users for Intercom company %s", companyId), zap.String("intercomId", companyId), zap.Error(err))
		return []User{}, err
	}

	if page.Data == nil {
		return []User{}, nil
	}
	return page.Data, nil
}

func fetchAllPaginated[T any](ctx context.Context, c *Client, endpoint string) ([]T, error) {
	util.Logger.Info(fmt.Sprintf("Fetching data from Intercom endpoint %s", endpoint), zap.String("endpoint", endpoint))

	firstUrl, err := url.Parse(c.config.BaseUrl + endpoint)
	if err != nil {
		return nil, err
	}
	if c.config.PerPage > 0 {
		query := firstUrl.Query()
		query.Set("per_page", strconv.Itoa(c.config.PerPage))
		firstUrl.RawQuery = query.Encode()
	}

	records := []T{}
	visited := map[string]bool{}
	nextUrl := firstUrl.String()

	for nextUrl != "" {
		if visited[nextUrl] {
			return records, PageLoopError.New("next page %s was already fetched", nextUrl)
		}
		visited[nextUrl] = true

		page, err := getPage[T](ctx, c, nextUrl)
		if err != nil {
			util.Logger.Error(fmt.Sprintf("Error fetching data from %s, stopping pagination", nextUrl), zap.String("endpoint", endpoint), zap.Int("fetched", len(records)), zap.Error(err))
			return records, err
		}

		records = append(records, page.Data...)

		nextUrl, err = nextPageUrl(firstUrl, page.Pages)
		if err != nil {
			return records, err
		}
		if nextUrl != "" {
			util.Logger.Debug(fmt.Sprintf("Fetched %d. Moving to next page", len(page.Data)), zap.String("endpoint", endpoint))
		}
	}

	util.Logger.Info(fmt.Sprintf("Fetched a total of %d from %s", len(records), endpoint), zap.String("endpoint", endpoint))
	return records, nil
}

// nextPageUrl prefers the url Intercom hands out and falls back to building one
// from the starting_after cursor.
func nextPageUrl(firstUrl *url.URL, pages *Pages) (string, error) {
	if pages == nil || pages.Next == nil {
		return "", nil
	}

	if pages.Next.Url != "" {
		next, err := url.Parse(pages.Next.Url)
		if err != nil {
			return "", DecodeError.Wrap(err, "invalid next page url")
		}
		return firstUrl.ResolveReference(next).String(), nil
	}

	if pages.Next.StartingAfter != "" {
		next := *firstUrl
		query := next.Query()
		query.Set("starting_after", pages.Next.StartingAfter)
		next.RawQuery = query.Encode()
		return next.String(), nil
	}

	return "", nil
}

func getPage[T any](ctx context.Context, c *Client, pageUrl string) (*ListResponse[T], error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pageUrl, nil)
	if err != nil {
		return nil, err
	}
	c.prepareHttpRequest(req)

	payload, err := util.DoRequest[ListResponse[T]](c.httpClient, req, nil)
	if err != nil {
		return nil, wrapError(err)
	}
	if payload == nil {
		return &ListResponse[T]{}, nil
	}

	return payload, nil
}

func wrapError(err error) error {
	var statusErr *util.UnexpectedStatusError
	if errors.As(err, &statusErr) {
		var body ErrorResponse
		if json.Unmarshal(statusErr.Body, &body) == nil && len(body.Errors) > 0 {
			return HttpError.Wrap(err, "%s: %s", body.Errors[0].Code, body.Errors[0].Message)
		}
		return HttpError.Wrap(err, "%s", string(statusErr.Body))
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return DecodeError.Wrap(err, "unable to decode Intercom response")
	}

	return err
}
