package hubspot

import "github.com/joomcode/errorx"

var (
	HubSpotError      = errorx.NewNamespace("hubspot")
	RecordNotFound    = HubSpotError.NewType("record_not_found")
	SearchFailed      = HubSpotError.NewType("search_failed")
	HttpError         = HubSpotError.NewType("http_error")
	AssociationFailed = HubSpotError.NewType("association_failed")
)
