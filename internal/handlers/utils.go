package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"photo-catalog/internal/library"
	"photo-catalog/internal/logging"
)

// writeJSON encodes v as JSON and writes it to the response writer.
// Any encoding or write errors are logged since we typically cannot
// recover from them in an HTTP handler context.
func writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONError writes an error response as JSON with the given status code.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, map[string]string{"error": message})
}

// writeJSONStatus writes a simple status response as JSON.
func writeJSONStatus(w http.ResponseWriter, status string) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"status": status})
}

// libraryFromRequest resolves the {id} route variable to an open
// library. A nil return means the error response was already written.
func (h *Handlers) libraryFromRequest(w http.ResponseWriter, r *http.Request) *library.Library {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	if err != nil {
		writeJSONError(w, "Invalid library id", http.StatusBadRequest)
		return nil
	}
	lib, ok := h.registry.ByID(uint32(id))
	if !ok {
		writeJSONError(w, "Library not found", http.StatusNotFound)
		return nil
	}
	return lib
}

// fileIDFromRequest parses the {fileId} route variable.
func fileIDFromRequest(w http.ResponseWriter, r *http.Request) (uint32, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["fileId"], 10, 32)
	if err != nil || id == 0 {
		writeJSONError(w, "Invalid file id", http.StatusBadRequest)
		return 0, false
	}
	return uint32(id), true
}
