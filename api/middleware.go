package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"MaintBackOffice/api/constants"
	"MaintBackOffice/internal/upload"

	"go.uber.org/zap"
)

type contextKey string

const uploadFileKey contextKey = "uploadFile"

// UploadFileFromCtx returns the file accepted by UploadFilter.
func UploadFileFromCtx(ctx context.Context) (upload.File, bool) {
	f, ok := ctx.Value(uploadFileKey).(upload.File)
	return f, ok
}

func withUploadFile(ctx context.Context, f upload.File) context.Context {
	return context.WithValue(ctx, uploadFileKey, f)
}

// statusWriter records the status and size of a response. It forwards Flush so
// streamed upload progress still reaches the client chunk by chunk.
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(p)
	w.bytes += int64(n)
	return n, err
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// RequestLogger logs one line per request once the handler returns.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		if sw.status == 0 {
			sw.status = http.StatusOK
		}
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", sw.status),
			zap.Duration("latency", time.Since(start)),
			zap.Int64("bytes", sw.bytes),
			zap.String("client_ip", clientIP(r)))
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get(constants.HeaderForwardedFor); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// UploadFilter accepts a multipart request carrying one spreadsheet or CSV in
// the "file" field, no larger than limit bytes. Rejected requests are answered
// here and never reach next.
func UploadFilter(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, limit+constants.MultipartOverhead)
			if err := r.ParseMultipartForm(constants.MultipartMemory); err != nil {
				var tooBig *http.MaxBytesError
				if errors.As(err, &tooBig) {
					RespondWithUploadError(w, upload.FileTooLarge(limit))
					return
				}
				RespondWithUploadError(w, upload.NoFileUploaded())
				return
			}
			defer r.MultipartForm.RemoveAll()

			file, header, err := r.FormFile(constants.UploadFileField)
			if err != nil {
				RespondWithUploadError(w, upload.NoFileUploaded())
				return
			}
			defer file.Close()

			if header.Size > limit {
				RespondWithUploadError(w, upload.FileTooLarge(limit))
				return
			}
			mimeType := header.Header.Get(constants.HeaderContentType)
			if _, ok := upload.DetectFormat(header.Filename, mimeType); !ok {
				RespondWithUploadError(w, upload.UnsupportedFileType(header.Filename, mimeType))
				return
			}
			data, err := io.ReadAll(file)
			if err != nil {
				RespondWithUploadError(w, upload.FileParseError(fmt.Errorf(constants.ErrUploadUnreadable, err)))
				return
			}

			f := upload.File{Name: header.Filename, MimeType: mimeType, Data: data}
			next.ServeHTTP(w, r.WithContext(withUploadFile(r.Context(), f)))
		})
	}
}
