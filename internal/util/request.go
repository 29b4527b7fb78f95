package util

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const USER_AGENT = "intercom-hubspot-sync - github.com/dfds/intercom-hubspot-sync"

// UnexpectedStatusError is returned by the default PostResponse hook. Body holds
// the raw response so callers can decode platform specific error payloads.
type UnexpectedStatusError struct {
	StatusCode int
	Body       []byte
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("response returned unexpected status code: %d", e.StatusCode)
}

type RequestFuncs struct {
	PreResponse     func(req *http.Request) error
	PostResponse    func(req *http.Request, resp *http.Response) error
	PreDeserialise  func(req *http.Request, resp *http.Response) error
	PostDeserialise func(req *http.Request, resp *http.Response, data interface{}) error
}

// NewRequestFuncs returns hooks that reject any non-2xx response.
func NewRequestFuncs() *RequestFuncs {
	rf := &RequestFuncs{
		PreResponse: func(req *http.Request) error {
			return nil
		},
		PostResponse: func(req *http.Request, resp *http.Response) error {
			return ExpectSuccess(resp)
		},
		PreDeserialise: func(req *http.Request, resp *http.Response) error {
			return nil
		},
		PostDeserialise: func(req *http.Request, resp *http.Response, data interface{}) error {
			return nil
		},
	}

	return rf
}

// ExpectSuccess drains and closes the body of a non-2xx response and returns it
// inside an UnexpectedStatusError.
func ExpectSuccess(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	defer resp.Body.Close()
	rawData, _ := io.ReadAll(resp.Body)

	return &UnexpectedStatusError{StatusCode: resp.StatusCode, Body: rawData}
}

func DoRequest[T any](httpClient *http.Client, req *http.Request, rf *RequestFuncs) (*T, error) {
	payload, _, err := DoRequestWithResp[T](httpClient, req, rf)
	if err != nil {
		return nil, err
	}

	return payload, nil
}

// DoRequestWithResp returns a nil payload when the response has no body.
func DoRequestWithResp[T any](httpClient *http.Client, req *http.Request, rf *RequestFuncs) (*T, *http.Response, error) {
	if rf == nil {
		rf = NewRequestFuncs()
	}
	err := rf.PreResponse(req)
	if err != nil {
		return nil, nil, err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}

	err = rf.PostResponse(req, resp)
	if err != nil {
		return nil, resp, err
	}

	defer resp.Body.Close()

	rawData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp, err
	}
	// e.g. 204 No Content
	if len(rawData) == 0 {
		return nil, resp, nil
	}

	var payload *T

	err = rf.PreDeserialise(req, resp)
	if err != nil {
		return nil, resp, err
	}

	err = json.Unmarshal(rawData, &payload)
	if err != nil {
		return nil, resp, err
	}

	err = rf.PostDeserialise(req, resp, payload)
	if err != nil {
		return payload, resp, err
	}

	return payload, resp, nil
}

func PrepareBearerRequest(req *http.Request, token string) {
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	req.Header.Set("User-Agent", USER_AGENT)
	req.Header.Set("Accept", "application/json")
}

func PrepareJsonRequest(req *http.Request, token string) {
	PrepareBearerRequest(req, token)
	req.Header.Set("Content-Type", "application/json")
}
