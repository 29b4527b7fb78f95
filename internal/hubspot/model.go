package hubspot

import (
	"fmt"
	"net/http"
)

const (
	ObjectTypeContacts  = "contacts"
	ObjectTypeCompanies = "companies"
)

type Record struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
	CreatedAt  string            `json:"createdAt"`
	UpdatedAt  string            `json:"updatedAt"`
	Archived   bool              `json:"archived"`
}

type RecordInput struct {
	Properties map[string]string `json:"properties"`
}

type SearchRequest struct {
	FilterGroups []FilterGroup `json:"filterGroups"`
	Properties   []string      `json:"properties"`
	Limit        int           `json:"limit"`
}

type FilterGroup struct {
	Filters []Filter `json:"filters"`
}

type Filter struct {
	PropertyName string `json:"propertyName"`
	Operator     string `json:"operator"`
	Value        string `json:"value"`
}

type SearchResponse struct {
	Total   int       `json:"total"`
	Results []*Record `json:"results"`
}

type ObjectId struct {
	ID string `json:"id"`
}

type AssociationInput struct {
	From ObjectId `json:"from"`
	To   ObjectId `json:"to"`
	Type string   `json:"type"`
}

type AssociationBatchRequest struct {
	Inputs []AssociationInput `json:"inputs"`
}

type BatchError struct {
	Status   string `json:"status"`
	Category string `json:"category"`
	Message  string `json:"message"`
}

type AssociationBatchResponse struct {
	Status    string       `json:"status"`
	NumErrors int          `json:"numErrors"`
	Errors    []BatchError `json:"errors"`
}

// AllConflicts reports whether every error in a multi-status response is a
// CONFLICT, i.e. the association was already there.
func (r *AssociationBatchResponse) AllConflicts() bool {
	for _, e := range r.Errors {
		if e.Category != CategoryConflict && e.Status != CategoryConflict {
			return false
		}
	}
	return true
}

const CategoryConflict = "CONFLICT"

// ApiError is HubSpot's structured error body plus the HTTP status code.
type ApiError struct {
	StatusCode    int    `json:"-"`
	Status        string `json:"status"`
	Message       string `json:"message"`
	Category      string `json:"category"`
	CorrelationId string `json:"correlationId"`
}

func (e *ApiError) Error() string {
	if e.Message == "" {
		return http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Category, e.Message)
}

func (e *ApiError) IsConflict() bool {
	return e.StatusCode == http.StatusConflict || e.Status == CategoryConflict || e.Category == CategoryConflict
}

// IsTransient is true for rate limiting and server side failures.
func (e *ApiError) IsTransient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
)

type UpsertResult struct {
	Action Action
	Record *Record
}
