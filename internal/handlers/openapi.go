package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gorilla/mux"
	"gopkg.in/yaml.v3"
)

// OpenAPIHandler serves the API contract in YAML and JSON form. The document
// is read from disk once and cached; the file never changes at runtime.
type OpenAPIHandler struct {
	docPath string
	baseDir string

	once    sync.Once
	yamlDoc []byte
	loadErr error
}

// NewOpenAPIHandler resolves docPath up front so a relative configuration
// value cannot escape its own directory later.
func NewOpenAPIHandler(docPath string) *OpenAPIHandler {
	absPath, _ := filepath.Abs(docPath)
	baseDir, _ := filepath.Abs(filepath.Dir(docPath))

	return &OpenAPIHandler{
		docPath: absPath,
		baseDir: baseDir,
	}
}

// RegisterRoutes registers the contract endpoints.
func (h *OpenAPIHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/v1/openapi.yaml", h.ServeYAML).Methods("GET")
	r.HandleFunc("/api/v1/openapi.json", h.ServeJSON).Methods("GET")
}

func (h *OpenAPIHandler) load() ([]byte, error) {
	h.once.Do(func() {
		rel, err := filepath.Rel(h.baseDir, filepath.Clean(h.docPath))
		if err != nil || rel == ".." || strings.HasPrefix(rel, "../") {
			h.loadErr = os.ErrPermission
			return
		}
		h.yamlDoc, h.loadErr = os.ReadFile(h.docPath)
	})
	return h.yamlDoc, h.loadErr
}

// ServeYAML serves the document as authored.
func (h *OpenAPIHandler) ServeYAML(w http.ResponseWriter, r *http.Request) {
	data, err := h.load()
	if err != nil {
		http.Error(w, "OpenAPI specification not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/x-yaml")
	if _, err := w.Write(data); err != nil {
		http.Error(w, "Failed to write response", http.StatusInternalServerError)
	}
}

// ServeJSON converts the YAML document to JSON for tooling that wants it.
func (h *OpenAPIHandler) ServeJSON(w http.ResponseWriter, r *http.Request) {
	data, err := h.load()
	if err != nil {
		http.Error(w, "OpenAPI specification not found", http.StatusNotFound)
		return
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		http.Error(w, "Failed to parse OpenAPI specification", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(doc); err != nil {
		http.Error(w, "Failed to encode JSON response", http.StatusInternalServerError)
	}
}
