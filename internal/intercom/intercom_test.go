package intercom

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/joomcode/errorx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(srv *httptest.Server) *Client {
	return NewIntercomClient(Config{
		BaseUrl:     srv.URL,
		AccessToken: "dummy-token",
	})
}

// pagedServer serves `pages` pages of two contacts each, linking them with
// pages.next.url. Pages listed in failing answer with a 500.
func pagedServer(t *testing.T, pages int, failing ...int) *httptest.Server {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer dummy-token", r.Header.Get("Authorization"))
		assert.Equal(t, DEFAULT_API_VERSION, r.Header.Get("Intercom-Version"))
		assert.Equal(t, "/contacts", r.URL.Path)

		page := 1
		if p := r.URL.Query().Get("page"); p != "" {
			fmt.Sscanf(p, "%d", &page)
		}

		for _, f := range failing {
			if f == page {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"type":"error.list","errors":[{"code":"server_error","message":"boom"}]}`))
				return
			}
		}

		next := "null"
		if page < pages {
			next = fmt.Sprintf(`{"url": "%s/contacts?page=%d"}`, srv.URL, page+1)
		}
		fmt.Fprintf(w, `{
			"type": "list",
			"data": [
				{"type": "contact", "id": "u%d-a", "email": "a%d@example.com", "name": "A%d"},
				{"type": "contact", "id": "u%d-b", "email": "b%d@example.com", "name": "B%d", "last_name": "Bee", "phone": "+4512345678"}
			],
			"pages": {"type": "pages", "page": %d, "total_pages": %d, "next": %s}
		}`, page, page, page, page, page, page, page, pages, next)
	}))
	return srv
}

func TestClient_FetchAllUsers(t *testing.T) {
	srv := pagedServer(t, 3)
	defer srv.Close()

	users, err := newTestClient(srv).FetchAllUsers(context.Background())
	require.NoError(t, err)

	require.Len(t, users, 6)
	assert.Equal(t, "u1-a", users[0].ID)
	assert.Equal(t, "u3-b", users[5].ID)
	assert.Equal(t, "Bee", users[1].LastName)
	assert.Equal(t, "+4512345678", users[1].Phone)
	assert.Equal(t, "", users[0].LastName)
	assert.Equal(t, "", users[0].Phone)
}

func TestClient_FetchAllUsersPartialOnError(t *testing.T) {
	srv := pagedServer(t, 5, 3)
	defer srv.Close()

	users, err := newTestClient(srv).FetchAllUsers(context.Background())
	require.Error(t, err)
	assert.True(t, errorx.IsOfType(err, HttpError))

	require.Len(t, users, 4)
	assert.Equal(t, "u2-b", users[3].ID)
}

func TestClient_FetchAllUsersFirstPageFails(t *testing.T) {
	srv := pagedServer(t, 2, 1)
	defer srv.Close()

	users, err := newTestClient(srv).FetchAllUsers(context.Background())
	assert.Error(t, err)
	assert.Empty(t, users)
}

func TestClient_FetchAllCompaniesCursor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/companies", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("per_page"))

		switch r.URL.Query().Get("starting_after") {
		case "":
			w.Write([]byte(`{"type":"list","data":[{"id":"c1","name":"Alpha","website":"https://alpha.example"},{"id":"c2","name":"Beta"}],"pages":{"next":{"page":2,"starting_after":"cursor-2"}}}`))
		case "cursor-2":
			w.Write([]byte(`{"type":"list","data":[{"id":"c3","name":"Gamma"}],"pages":{"next":null}}`))
		default:
			t.Errorf("unexpected cursor %s", r.URL.Query().Get("starting_after"))
		}
	}))
	defer srv.Close()

	client := NewIntercomClient(Config{BaseUrl: srv.URL + "/", AccessToken: "dummy-token", PerPage: 2})
	companies, err := client.FetchAllCompanies(context.Background())
	require.NoError(t, err)

	require.Len(t, companies, 3)
	assert.Equal(t, "https://alpha.example", companies[0].Website)
	assert.Equal(t, "", companies[1].Website)
	assert.Equal(t, "c3", companies[2].ID)
}

func TestClient_FetchAllCompaniesLoopGuard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"type":"list","data":[{"id":"c1","name":"Alpha"}],"pages":{"next":{"url":"/companies"}}}`))
	}))
	defer srv.Close()

	companies, err := newTestClient(srv).FetchAllCompanies(context.Background())
	assert.True(t, errorx.IsOfType(err, PageLoopError))
	assert.Len(t, companies, 1)
}

func TestClient_FetchAllCompaniesNextAsString(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			w.Write([]byte(`{"type":"list","data":[{"id":"c2","name":"Beta"}],"pages":{"page":2}}`))
			return
		}
		fmt.Fprintf(w, `{"type":"list","data":[{"id":"c1","name":"Alpha"}],"pages":{"page":1,"next":"%s/companies?page=2"}}`, srv.URL)
	}))
	defer srv.Close()

	companies, err := newTestClient(srv).FetchAllCompanies(context.Background())
	require.NoError(t, err)
	require.Len(t, companies, 2)
	assert.Equal(t, "c1", companies[0].ID)
	assert.Equal(t, "c2", companies[1].ID)
}

func TestPageNext_UnmarshalJSON(t *testing.T) {
	var pages Pages

	require.NoError(t, json.Unmarshal([]byte(`{"next":"https://api.intercom.io/contacts?page=2"}`), &pages))
	require.NotNil(t, pages.Next)
	assert.Equal(t, "https://api.intercom.io/contacts?page=2", pages.Next.Url)

	require.NoError(t, json.Unmarshal([]byte(`{"next":{"page":3,"starting_after":"abc"}}`), &pages))
	assert.Equal(t, PageNext{Page: 3, StartingAfter: "abc"}, *pages.Next)

	assert.Error(t, json.Unmarshal([]byte(`{"next":42}`), &pages))
}

func TestClient_ErrorBodyWithPercent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`100% down %d`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).FetchAllCompanies(context.Background())
	assert.True(t, errorx.IsOfType(err, HttpError))
	assert.Contains(t, err.Error(), "100% down %d")
}

func TestClient_GetUsersByCompany(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/contacts", r.URL.Path)
		if r.URL.Query().Get("company_id") != "c1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"type":"list","data":[{"id":"u1"},{"id":"u2"}]}`))
	}))
	defer srv.Close()

	client := newTestClient(srv)

	users, err := client.GetUsersByCompany(context.Background(), "c1")
	require.NoError(t, err)
	assert.Len(t, users, 2)

	users, err = client.GetUsersByCompany(context.Background(), "c2")
	assert.Error(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)
}

func TestClient_GetUsersByCompanyEmptyData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"type":"list"}`))
	}))
	defer srv.Close()

	users, err := newTestClient(srv).GetUsersByCompany(context.Background(), "c1")
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)
}

func TestClient_CancelledContext(t *testing.T) {
	srv := pagedServer(t, 2)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	users, err := newTestClient(srv).FetchAllUsers(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, users)
}
