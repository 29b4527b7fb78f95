package util

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dummyPayload struct {
	Name string `json:"name"`
}

func TestDoRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer dummy", r.Header.Get("Authorization"))
		assert.Equal(t, USER_AGENT, r.Header.Get("User-Agent"))
		w.Write([]byte(`{"name": "dummy"}`))
	}))
	defer srv.Close()

	req, err := http.NewRequest("GET", srv.URL, nil)
	require.NoError(t, err)
	PrepareBearerRequest(req, "dummy")

	payload, err := DoRequest[dummyPayload](srv.Client(), req, nil)
	require.NoError(t, err)
	assert.Equal(t, "dummy", payload.Name)
}

func TestDoRequestUnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`upstream down`))
	}))
	defer srv.Close()

	req, err := http.NewRequest("GET", srv.URL, nil)
	require.NoError(t, err)

	payload, err := DoRequest[dummyPayload](srv.Client(), req, nil)
	assert.Nil(t, payload)

	var statusErr *UnexpectedStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Equal(t, "upstream down", string(statusErr.Body))
}

func TestDoRequestEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	req, err := http.NewRequest("POST", srv.URL, nil)
	require.NoError(t, err)

	payload, resp, err := DoRequestWithResp[dummyPayload](srv.Client(), req, nil)
	require.NoError(t, err)
	assert.Nil(t, payload)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestDoRequestHooks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMultiStatus)
		w.Write([]byte(`{"name": "partial"}`))
	}))
	defer srv.Close()

	req, err := http.NewRequest("POST", srv.URL, nil)
	require.NoError(t, err)

	errPartial := errors.New("partial")
	rf := NewRequestFuncs()
	rf.PostDeserialise = func(req *http.Request, resp *http.Response, data interface{}) error {
		if resp.StatusCode == http.StatusMultiStatus && data.(*dummyPayload).Name == "partial" {
			return errPartial
		}
		return nil
	}

	payload, _, err := DoRequestWithResp[dummyPayload](srv.Client(), req, rf)
	assert.ErrorIs(t, err, errPartial)
	require.NotNil(t, payload)
	assert.Equal(t, "partial", payload.Name)
}
