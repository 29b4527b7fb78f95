package intercom

import (
	"bytes"
	"encoding/json"
)

type User struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	ExternalID string `json:"external_id"`
	Role       string `json:"role"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	LastName   string `json:"last_name"`
	Phone      string `json:"phone"`
}

type Company struct {
	Type      string `json:"type"`
	ID        string `json:"id"`
	CompanyID string `json:"company_id"`
	Name      string `json:"name"`
	Website   string `json:"website"`
}

type ListResponse[T any] struct {
	Type       string `json:"type"`
	Data       []T    `json:"data"`
	TotalCount int    `json:"total_count"`
	Pages      *Pages `json:"pages"`
}

type Pages struct {
	Type       string    `json:"type"`
	Page       int       `json:"page"`
	PerPage    int       `json:"per_page"`
	TotalPages int       `json:"total_pages"`
	Next       *PageNext `json:"next"`
}

// PageNext is either a full url (older api versions) or a starting_after cursor.
type PageNext struct {
	Url           string `json:"url"`
	Page          int    `json:"page"`
	StartingAfter string `json:"starting_after"`
}

// UnmarshalJSON also accepts "next" sent as a plain url string.
func (p *PageNext) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var nextUrl string
		if err := json.Unmarshal(data, &nextUrl); err != nil {
			return err
		}
		*p = PageNext{Url: nextUrl}
		return nil
	}

	type pageNext PageNext
	var next pageNext
	if err := json.Unmarshal(data, &next); err != nil {
		return err
	}
	*p = PageNext(next)
	return nil
}

// ErrorResponse is the body Intercom sends with 4xx/5xx responses.
type ErrorResponse struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id"`
	Errors    []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}
