package intercomtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	"go.dfds.cloud/intercom-hubspot-sync/internal/intercom"
)

// FakeServer serves contacts and companies the way Intercom paginates them,
// linking pages with pages.next.url.
type FakeServer struct {
	*httptest.Server

	mu sync.Mutex

	Users     []intercom.User
	Companies []intercom.Company
	// Members maps a company id to the ids of its users.
	Members  map[string][]string
	PageSize int

	// FailPage answers the given page number of an endpoint ("contacts",
	// "companies") with a 500.
	FailPage map[string]int
	// FailMembers answers the member lookup of these companies with a 500.
	FailMembers map[string]bool
}

func NewFakeServer() *FakeServer {
	f := &FakeServer{
		Members:     map[string][]string{},
		PageSize:    2,
		FailPage:    map[string]int{},
		FailMembers: map[string]bool{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /contacts", f.contacts)
	mux.HandleFunc("GET /companies", f.companies)
	f.Server = httptest.NewServer(mux)

	return f
}

// AddCompany registers a company together with its users.
func (f *FakeServer) AddCompany(company intercom.Company, users ...intercom.User) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Companies = append(f.Companies, company)
	for _, user := range users {
		f.Users = append(f.Users, user)
		f.Members[company.ID] = append(f.Members[company.ID], user.ID)
	}
}

func writeError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	w.Write([]byte(`{"type":"error.list","errors":[{"code":"server_error","message":"fake failure"}]}`))
}

func writePage[T any](f *FakeServer, w http.ResponseWriter, r *http.Request, endpoint string, items []T) {
	page := 1
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}

	if f.FailPage[endpoint] == page {
		writeError(w)
		return
	}

	start := (page - 1) * f.PageSize
	end := start + f.PageSize
	if start > len(items) {
		start = len(items)
	}
	if end > len(items) {
		end = len(items)
	}

	resp := intercom.ListResponse[T]{
		Type:       "list",
		Data:       items[start:end],
		TotalCount: len(items),
		Pages:      &intercom.Pages{Type: "pages", Page: page, PerPage: f.PageSize},
	}
	if end < len(items) {
		resp.Pages.Next = &intercom.PageNext{Url: fmt.Sprintf("%s/%s?page=%d", f.URL, endpoint, page+1)}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (f *FakeServer) contacts(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	companyId := r.URL.Query().Get("company_id")
	if companyId == "" {
		writePage(f, w, r, "contacts", f.Users)
		return
	}

	if f.FailMembers[companyId] {
		writeError(w)
		return
	}

	members := []intercom.User{}
	for _, id := range f.Members[companyId] {
		for _, user := range f.Users {
			if user.ID == id {
				members = append(members, user)
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(intercom.ListResponse[intercom.User]{Type: "list", Data: members, TotalCount: len(members)})
}

func (f *FakeServer) companies(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	writePage(f, w, r, "companies", f.Companies)
}
