package hubspottest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"

	"go.dfds.cloud/intercom-hubspot-sync/internal/hubspot"
)

// FakeServer is an in-memory HubSpot CRM speaking the subset of the v3 objects
// and v4 associations api used by the hubspot client.
type FakeServer struct {
	*httptest.Server

	mu                 sync.Mutex
	nextId             int
	externalIdProperty string

	Records      map[string]map[string]*hubspot.Record
	Associations map[[2]string]int

	SearchCalls      int
	CreateCalls      int
	UpdateCalls      int
	AssociationCalls int

	// FailSearches answers that many upcoming searches with a 503.
	FailSearches int
	// FailCreate rejects creates for these external ids with a 400.
	FailCreate map[string]bool
	// FailAssociation rejects associations from these contact ids with a 400.
	FailAssociation map[string]bool
}

func NewFakeServer() *FakeServer {
	f := &FakeServer{
		externalIdProperty: hubspot.DEFAULT_EXTERNAL_ID_PROPERTY,
		Records: map[string]map[string]*hubspot.Record{
			hubspot.ObjectTypeContacts:  {},
			hubspot.ObjectTypeCompanies: {},
		},
		Associations:    map[[2]string]int{},
		FailCreate:      map[string]bool{},
		FailAssociation: map[string]bool{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /crm/v3/objects/{type}/search", f.search)
	mux.HandleFunc("POST /crm/v3/objects/{type}", f.create)
	mux.HandleFunc("PATCH /crm/v3/objects/{type}/{id}", f.update)
	mux.HandleFunc("POST /crm/v4/associations/contacts/companies/batch/create", f.associate)
	f.Server = httptest.NewServer(mux)

	return f
}

// Count returns how many records of objectType exist.
func (f *FakeServer) Count(objectType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Records[objectType])
}

// FindByExternalId looks a record up directly in the store.
func (f *FakeServer) FindByExternalId(objectType string, externalId string) *hubspot.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.findLocked(objectType, externalId)
}

func (f *FakeServer) findLocked(objectType string, externalId string) *hubspot.Record {
	for _, record := range f.Records[objectType] {
		if record.Properties[f.externalIdProperty] == externalId {
			return record
		}
	}
	return nil
}

func writeJson(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, category string, message string) {
	writeJson(w, status, hubspot.ApiError{Status: "error", Category: category, Message: message, CorrelationId: "fake"})
}

func (f *FakeServer) search(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SearchCalls++

	if f.FailSearches > 0 {
		f.FailSearches--
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "try again later")
		return
	}

	var req hubspot.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.FilterGroups) == 0 || len(req.FilterGroups[0].Filters) == 0 {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid search")
		return
	}

	filter := req.FilterGroups[0].Filters[0]
	resp := hubspot.SearchResponse{Results: []*hubspot.Record{}}
	if filter.PropertyName == f.externalIdProperty {
		if record := f.findLocked(r.PathValue("type"), filter.Value); record != nil {
			resp.Results = append(resp.Results, record)
			resp.Total = 1
		}
	}

	writeJson(w, http.StatusOK, resp)
}

func (f *FakeServer) create(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CreateCalls++

	objectType := r.PathValue("type")
	var input hubspot.RecordInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid body")
		return
	}

	if f.FailCreate[input.Properties[f.externalIdProperty]] {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Property values were not valid")
		return
	}

	f.nextId++
	record := &hubspot.Record{ID: fmt.Sprintf("%d", 1000+f.nextId), Properties: input.Properties}
	if f.Records[objectType] == nil {
		f.Records[objectType] = map[string]*hubspot.Record{}
	}
	f.Records[objectType][record.ID] = record

	writeJson(w, http.StatusCreated, record)
}

func (f *FakeServer) update(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.UpdateCalls++

	record, ok := f.Records[r.PathValue("type")][r.PathValue("id")]
	if !ok {
		writeError(w, http.StatusNotFound, "OBJECT_NOT_FOUND", "resource not found")
		return
	}

	var input hubspot.RecordInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid body")
		return
	}
	for k, v := range input.Properties {
		record.Properties[k] = v
	}

	writeJson(w, http.StatusOK, record)
}

func (f *FakeServer) associate(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.AssociationCalls++

	var req hubspot.AssociationBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Inputs) != 1 {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid body")
		return
	}
	input := req.Inputs[0]

	if f.FailAssociation[input.From.ID] {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid association")
		return
	}

	key := [2]string{input.From.ID, input.To.ID}
	if f.Associations[key] > 0 {
		writeJson(w, http.StatusConflict, hubspot.ApiError{Status: hubspot.CategoryConflict, Message: "association already exists"})
		return
	}
	f.Associations[key]++

	writeJson(w, http.StatusCreated, map[string]interface{}{"status": "COMPLETE", "results": []interface{}{}})
}
