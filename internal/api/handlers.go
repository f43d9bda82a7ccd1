package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/appri/incidentdb/internal/debug"
	"github.com/appri/incidentdb/internal/export"
	"github.com/appri/incidentdb/internal/service"
)

const (
	contentTypeJSON    = "application/json"
	contentTypeMsgpack = "application/msgpack"

	maxBodyBytes = 1 << 20
)

const rootMessage = "¡Hola! Mi servidor SQL está funcionando:)."

type errorResponse struct {
	Detail    string `json:"detail" msgpack:"detail"`
	RequestID string `json:"request_id,omitempty" msgpack:"request_id,omitempty"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, map[string]string{"message": rootMessage})
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	schema, err := s.svc.Schema(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, schema)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}
	res, err := s.svc.Preview(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, res)
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}
	res, err := s.svc.Explain(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, res)
}

// handleDownload streams the full result in the requested file type.
// Unknown file types fall back to CSV.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}
	res, err := s.svc.Download(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	enc := export.ForFileType(req.FileType)
	if !export.Known(req.FileType) {
		debug.Info("unknown file type, sending csv", "file_type", req.FileType, "request_id", RequestID(r.Context()))
	}
	w.Header().Set("Content-Type", enc.ContentType())
	w.Header().Set("Content-Disposition", "attachment; filename="+export.Filename(enc))
	w.WriteHeader(http.StatusOK)
	if err := enc.Encode(w, res); err != nil {
		// Headers are gone; all we can do is log and cut the stream.
		debug.Error("download encoding failed", "error", err, "request_id", RequestID(r.Context()))
	}
}

func handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusMethodNotAllowed, errorResponse{
		Detail:    "Method Not Allowed",
		RequestID: RequestID(r.Context()),
	})
}

// decodeRequest reads a JSON query request. It writes a 400 and returns
// false on malformed input.
func decodeRequest(w http.ResponseWriter, r *http.Request) (service.QueryRequest, bool) {
	var req service.QueryRequest
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(&req); err != nil {
		respondError(w, r, fmt.Errorf("%w: %w", service.ErrInvalidRequest, err))
		return req, false
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		respondError(w, r, fmt.Errorf("%w: trailing data after request body", service.ErrInvalidRequest))
		return req, false
	}
	if err := req.Validate(); err != nil {
		respondError(w, r, err)
		return req, false
	}
	return req, true
}

// wantsMsgpack reports whether the client asked for MessagePack.
func wantsMsgpack(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mt, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err == nil && (mt == contentTypeMsgpack || mt == "application/x-msgpack") {
			return true
		}
	}
	return false
}

func respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	if wantsMsgpack(r) {
		data, err := msgpack.Marshal(v)
		if err != nil {
			debug.Error("msgpack encoding failed", "error", err)
			status = http.StatusInternalServerError
			data, _ = msgpack.Marshal(errorResponse{Detail: "encoding failed", RequestID: RequestID(r.Context())})
		}
		w.Header().Set("Content-Type", contentTypeMsgpack)
		w.WriteHeader(status)
		w.Write(data)
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		debug.Error("json encoding failed", "error", err)
		status = http.StatusInternalServerError
		data, _ = json.Marshal(errorResponse{Detail: "encoding failed", RequestID: RequestID(r.Context())})
	}
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	w.Write(data)
}

// respondError maps service errors to HTTP statuses: invalid requests are
// 400, everything else is 500.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, service.ErrInvalidRequest):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		debug.Error("request failed", "error", err, "request_id", RequestID(r.Context()))
	}
	respond(w, r, status, errorResponse{Detail: err.Error(), RequestID: RequestID(r.Context())})
}
