package intercom

import "github.com/joomcode/errorx"

var (
	IntercomError = errorx.NewNamespace("intercom")
	HttpError     = IntercomError.NewType("http_error")
	DecodeError   = IntercomError.NewType("decode_error")
	PageLoopError = IntercomError.NewType("page_loop")
)
