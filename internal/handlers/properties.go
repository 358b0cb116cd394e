package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"photo-catalog/internal/library"
	"photo-catalog/internal/photo"
)

// PropertiesResponse is the API view of a photo's property state.
type PropertiesResponse struct {
	FileID     uint32                    `json:"fileId"`
	ActiveType string                    `json:"activeType"`
	FileTypes  []string                  `json:"fileTypes"`
	Name       string                    `json:"name"`
	Title      string                    `json:"title"`
	Rating     int                       `json:"rating"`
	Hidden     bool                      `json:"hidden"`
	Flagged    bool                      `json:"flagged"`
	Explicit   map[photo.Key]photo.Value `json:"explicit"`
}

func propertiesResponse(img *photo.Image) PropertiesResponse {
	activeType, _ := img.Property(photo.KeyActiveType)
	fileTypes, _ := img.Property(photo.KeyFileTypes)

	return PropertiesResponse{
		FileID:     img.ImageID(),
		ActiveType: activeType.AsString(),
		FileTypes:  fileTypes.AsList(),
		Name:       img.Name(),
		Title:      img.Title(),
		Rating:     img.Rating(),
		Hidden:     img.Hidden(),
		Flagged:    img.Flagged(),
		Explicit:   img.ExplicitProperties(),
	}
}

func (h *Handlers) imageFromRequest(w http.ResponseWriter, r *http.Request) *photo.Image {
	lib := h.libraryFromRequest(w, r)
	if lib == nil {
		return nil
	}
	fileID, ok := fileIDFromRequest(w, r)
	if !ok {
		return nil
	}

	img, err := lib.ImageByFileID(fileID)
	if err != nil {
		if errors.Is(err, library.ErrNotFound) {
			writeJSONError(w, "Image not found", http.StatusNotFound)
		} else {
			writeJSONError(w, "Failed to resolve image", http.StatusInternalServerError)
		}
		return nil
	}
	return img
}

// GetProperties returns a photo's explicit properties and derived state
func (h *Handlers) GetProperties(w http.ResponseWriter, r *http.Request) {
	img := h.imageFromRequest(w, r)
	if img == nil {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, propertiesResponse(img))
}

// PatchProperties applies partial property updates. A JSON null deletes
// the key, restoring any implicit fallback. The ActiveType key switches
// the active variant and is rejected when the requested variant file is
// absent.
func (h *Handlers) PatchProperties(w http.ResponseWriter, r *http.Request) {
	img := h.imageFromRequest(w, r)
	if img == nil {
		return
	}

	var patch map[photo.Key]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	for key, raw := range patch {
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			img.RemoveProperty(key)
			continue
		}

		var value photo.Value
		if err := json.Unmarshal(raw, &value); err != nil {
			writeJSONError(w, "Invalid value for "+string(key), http.StatusBadRequest)
			return
		}

		if key == photo.KeyActiveType {
			wantRAW := value.AsString() == "raw"
			if !img.SetUsesRAW(wantRAW) {
				writeJSONError(w, "Requested variant is not present", http.StatusConflict)
				return
			}
			continue
		}

		img.SetProperty(key, value)
	}

	if err := img.SaveProperties(); err != nil {
		writeJSONError(w, "Failed to write sidecar", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, propertiesResponse(img))
}
