package constants

// Common error messages
const (
	ErrUnknownResource   = "unknown upload resource: %s"
	ErrStoreUnavailable  = "store unavailable"
	ErrMethodNotAllowed  = "Method Not Allowed"
	ErrNotFound          = "Not Found"
	ErrUploadUnreadable  = "uploaded file could not be read: %v"
	ErrServiceNeedsStore = "%s service needs a store"
)
