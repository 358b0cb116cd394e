package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"photo-catalog/internal/library"
)

// LibraryInfo is the API view of one open library.
type LibraryInfo struct {
	ID            uint32   `json:"id"`
	Name          string   `json:"name"`
	Path          string   `json:"path"`
	Transient     bool     `json:"transient"`
	ActiveImports []string `json:"activeImports,omitempty"`
}

func libraryInfo(lib *library.Library) LibraryInfo {
	return LibraryInfo{
		ID:            lib.ID(),
		Name:          lib.Name(),
		Path:          lib.Path(),
		Transient:     lib.Transient(),
		ActiveImports: lib.ActiveImports(),
	}
}

// ListLibraries returns all open libraries
func (h *Handlers) ListLibraries(w http.ResponseWriter, _ *http.Request) {
	libs := h.registry.All()
	infos := make([]LibraryInfo, 0, len(libs))
	for _, lib := range libs {
		infos = append(infos, libraryInfo(lib))
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, infos)
}

// AddLibraryRequest is the body for registering a library.
type AddLibraryRequest struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	Transient bool   `json:"transient"`
}

// AddLibrary registers a new library rooted at an existing directory
func (h *Handlers) AddLibrary(w http.ResponseWriter, r *http.Request) {
	var req AddLibraryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Path == "" {
		writeJSONError(w, "Path is required", http.StatusBadRequest)
		return
	}

	lib, err := h.registry.Add(req.Name, req.Path, req.Transient)
	if err != nil {
		if errors.Is(err, library.ErrDuplicateLibrary) {
			writeJSONError(w, "Library already registered", http.StatusConflict)
			return
		}
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, libraryInfo(lib))
}

// RemoveLibrary detaches a library from the registry. Files on disk are
// untouched.
func (h *Handlers) RemoveLibrary(w http.ResponseWriter, r *http.Request) {
	lib := h.libraryFromRequest(w, r)
	if lib == nil {
		return
	}

	lib.Invalidate()
	if err := h.registry.Save(); err != nil {
		writeJSONError(w, "Failed to persist registry", http.StatusInternalServerError)
		return
	}
	writeJSONStatus(w, "removed")
}

// SyncLibrary flushes the library's catalog and registry metadata to
// disk
func (h *Handlers) SyncLibrary(w http.ResponseWriter, r *http.Request) {
	lib := h.libraryFromRequest(w, r)
	if lib == nil {
		return
	}

	if err := lib.Synchronize(); err != nil {
		writeJSONError(w, "Failed to synchronize library", http.StatusInternalServerError)
		return
	}
	writeJSONStatus(w, "synchronized")
}
