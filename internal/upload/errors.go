package upload

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindNoFile                 Kind = "NoFileUploaded"
	KindUnsupportedFileType    Kind = "UnsupportedFileType"
	KindFileParse              Kind = "FileParseError"
	KindEmptyFile              Kind = "EmptyFile"
	KindMissingRequiredHeaders Kind = "MissingRequiredHeaders"
	KindFileTooLarge           Kind = "FileTooLarge"
	KindSystem                 Kind = "SystemError"
)

// Error is a job-level failure. Row-level problems never become an Error; they
// end up on the row's RecordOutcome instead.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// AsError unwraps err to an *Error, wrapping anything else as a SystemError.
func AsError(err error) *Error {
	var ue *Error
	if errors.As(err, &ue) {
		return ue
	}
	return SystemError(err)
}

func NoFileUploaded() *Error {
	return &Error{Kind: KindNoFile, Status: http.StatusBadRequest, Message: "no file uploaded"}
}

func UnsupportedFileType(name, mimeType string) *Error {
	return &Error{
		Kind:    KindUnsupportedFileType,
		Status:  http.StatusBadRequest,
		Message: fmt.Sprintf("unsupported file type %q (%s); upload a .csv, .xlsx or .xls file", name, mimeType),
	}
}

func FileParseError(err error) *Error {
	return &Error{
		Kind:    KindFileParse,
		Status:  http.StatusBadRequest,
		Message: fmt.Sprintf("failed to parse file: %v", err),
		Err:     err,
	}
}

func EmptyFile() *Error {
	return &Error{Kind: KindEmptyFile, Status: http.StatusBadRequest, Message: "file contains no data rows"}
}

func FileTooLarge(limit int64) *Error {
	return &Error{
		Kind:    KindFileTooLarge,
		Status:  http.StatusRequestEntityTooLarge,
		Message: fmt.Sprintf("file exceeds the %dMB upload limit", limit>>20),
	}
}

func MissingRequiredHeaders(missing, seen []string) *Error {
	return &Error{
		Kind:    KindMissingRequiredHeaders,
		Status:  http.StatusBadRequest,
		Message: fmt.Sprintf("missing required columns: %v", missing),
		Details: map[string]any{"missingFields": missing, "headersFound": seen},
	}
}

func SystemError(err error) *Error {
	return &Error{Kind: KindSystem, Status: http.StatusInternalServerError, Message: err.Error(), Err: err}
}
