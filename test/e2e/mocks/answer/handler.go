// Package answermock fakes the answer service and the file upload service.
package answermock

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"
)

// Request is one recorded answer service call.
type Request struct {
	Message    string `json:"message"`
	ThreadID   string `json:"thread_id"`
	InputFiles string `json:"input_files"`
}

// Upload is one uploaded multipart part.
type Upload struct {
	Field       string
	Filename    string
	ContentType string
	Content     []byte
}

// Handler serves POST /execute and POST /upload.
type Handler struct {
	mu       sync.Mutex
	status   int
	response string
	requests []Request
	uploads  []Upload
}

// NewHandler creates a mock that answers "ok" until told otherwise.
func NewHandler() *Handler {
	h := &Handler{}
	h.Reset()
	return h
}

// Reset restores the default reply and forgets recorded calls.
func (h *Handler) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status = http.StatusOK
	h.response = `{"response":"ok"}`
	h.requests = nil
	h.uploads = nil
}

// Respond sets the status and raw JSON body of the next answers.
func (h *Handler) Respond(status int, body string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status = status
	h.response = body
}

// Requests returns the recorded answer calls.
func (h *Handler) Requests() []Request {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Request, len(h.requests))
	copy(out, h.requests)
	return out
}

// Uploads returns the recorded uploaded parts.
func (h *Handler) Uploads() []Upload {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Upload, len(h.uploads))
	copy(out, h.uploads)
	return out
}

// ServeHTTP implements the http.Handler interface.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	switch r.URL.Path {
	case "/execute":
		h.handleExecute(w, r)
	case "/upload":
		h.handleUpload(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	h.requests = append(h.requests, req)
	status, body := h.status, h.response
	h.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

// handleUpload stores every part and returns one handle per file.
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	mr, err := r.MultipartReader()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	type handle struct {
		Name     string `json:"name"`
		FilePath string `json:"file_path"`
	}
	var handles []handle

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		content, err := io.ReadAll(part)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		h.mu.Lock()
		h.uploads = append(h.uploads, Upload{
			Field:       part.FormName(),
			Filename:    part.FileName(),
			ContentType: part.Header.Get("Content-Type"),
			Content:     content,
		})
		h.mu.Unlock()

		handles = append(handles, handle{Name: part.FileName(), FilePath: "uploads/" + part.FileName()})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"files": handles})
}
