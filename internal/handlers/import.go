package handlers

import (
	"encoding/json"
	"net/http"

	"photo-catalog/internal/filetype"
	"photo-catalog/internal/library"
	"photo-catalog/internal/photo"
)

// ImportRequest is the body for starting an import job.
type ImportRequest struct {
	Sources       []string                  `json:"sources"`
	Dest          string                    `json:"dest"`
	FileTypes     []string                  `json:"fileTypes,omitempty"`
	PreferredType string                    `json:"preferredType,omitempty"`
	Renames       map[string]string         `json:"renames,omitempty"`
	Properties    map[photo.Key]photo.Value `json:"properties,omitempty"`
	DeleteSource  bool                      `json:"deleteSource"`
	Wait          bool                      `json:"wait"`
}

// ImportItemResult is the API view of one source file's outcome.
type ImportItemResult struct {
	Source string `json:"source"`
	Dest   string `json:"dest,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ImportResponse reports a started or finished import job.
type ImportResponse struct {
	JobID    string             `json:"jobId"`
	Finished bool               `json:"finished"`
	Results  []ImportItemResult `json:"results,omitempty"`
}

func parseKind(s string) (filetype.Kind, bool) {
	switch s {
	case "jpeg":
		return filetype.KindJPEG, true
	case "raw":
		return filetype.KindRAW, true
	default:
		return "", false
	}
}

func importResults(job *library.ImportJob) []ImportItemResult {
	results := job.Results()
	out := make([]ImportItemResult, 0, len(results))
	for _, r := range results {
		item := ImportItemResult{Source: r.Source, Dest: r.Dest}
		if r.Err != nil {
			item.Error = r.Err.Error()
		}
		out = append(out, item)
	}
	return out
}

// StartImport launches an asynchronous import job. With "wait" set the
// request blocks and the per-item outcomes are returned directly.
func (h *Handlers) StartImport(w http.ResponseWriter, r *http.Request) {
	lib := h.libraryFromRequest(w, r)
	if lib == nil {
		return
	}

	var req ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Sources) == 0 {
		writeJSONError(w, "Sources are required", http.StatusBadRequest)
		return
	}

	opts := library.ImportOptions{
		Properties:   req.Properties,
		DeleteSource: req.DeleteSource,
	}
	if len(req.Renames) > 0 {
		renames := req.Renames
		opts.Rename = func(base string) string { return renames[base] }
	}
	for _, s := range req.FileTypes {
		kind, ok := parseKind(s)
		if !ok {
			writeJSONError(w, "Unknown file type "+s, http.StatusBadRequest)
			return
		}
		opts.FileTypes = append(opts.FileTypes, kind)
	}
	if req.PreferredType != "" {
		kind, ok := parseKind(req.PreferredType)
		if !ok {
			writeJSONError(w, "Unknown preferred type "+req.PreferredType, http.StatusBadRequest)
			return
		}
		opts.PreferredType = kind
	}

	job := lib.ImportImages(req.Sources, req.Dest, opts)

	w.Header().Set("Content-Type", "application/json")
	if req.Wait {
		job.Wait()
		writeJSON(w, ImportResponse{
			JobID:    job.ID(),
			Finished: true,
			Results:  importResults(job),
		})
		return
	}

	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, ImportResponse{JobID: job.ID()})
}
