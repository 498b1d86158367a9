package constants

// Headers
const (
	HeaderContentType        = "Content-Type"
	HeaderCacheControl       = "Cache-Control"
	HeaderContentTypeOptions = "X-Content-Type-Options"
	HeaderForwardedFor       = "X-Forwarded-For"
)

// Content Types
const (
	ContentTypeJSON = "application/json"
)

// Upload form
const (
	UploadFileField = "file"
	// Parts above this stay on disk while the form is parsed.
	MultipartMemory = 32 << 20
	// Allowance for multipart framing on top of the file size cap.
	MultipartOverhead = 1 << 20
)
