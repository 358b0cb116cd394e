package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"os"
	"slices"
	"strconv"
	"time"

	"photo-catalog/internal/library"
	"photo-catalog/internal/logging"
	"photo-catalog/internal/metrics"
	"photo-catalog/internal/photo"
)

// ImageInfo is the API view of one logical photo.
type ImageInfo struct {
	FileID    uint32   `json:"fileId"`
	Name      string   `json:"name"`
	Title     string   `json:"title"`
	BaseName  string   `json:"baseName"`
	Directory string   `json:"directory"`
	Path      string   `json:"path"`
	FileTypes []string `json:"fileTypes"`
	UsesRAW   bool     `json:"usesRaw"`
	Rating    int      `json:"rating"`
	Hidden    bool     `json:"hidden"`
	Flagged   bool     `json:"flagged"`
	Date      string   `json:"date,omitempty"`
	FileSize  int64    `json:"fileSize,omitempty"`
}

func imageInfo(img *photo.Image) ImageInfo {
	types, _ := img.Property(photo.KeyFileTypes)

	info := ImageInfo{
		FileID:    img.ImageID(),
		Name:      img.Name(),
		Title:     img.Title(),
		BaseName:  img.BaseName(),
		Directory: img.Directory(),
		Path:      img.ImagePath(),
		FileTypes: types.AsList(),
		UsesRAW:   img.UsesRAW(),
		Rating:    img.Rating(),
		Hidden:    img.Hidden(),
		Flagged:   img.Flagged(),
		FileSize:  img.FileSize(),
	}
	if d := img.Date(); !d.IsZero() {
		info.Date = d.Format(time.RFC3339)
	}
	return info
}

// ListImages scans a library directory and returns its photos
func (h *Handlers) ListImages(w http.ResponseWriter, r *http.Request) {
	lib := h.libraryFromRequest(w, r)
	if lib == nil {
		return
	}

	dir := r.URL.Query().Get("dir")
	recursive, _ := strconv.ParseBool(r.URL.Query().Get("recursive"))
	sortKey := r.URL.Query().Get("sort")
	reversed, _ := strconv.ParseBool(r.URL.Query().Get("reversed"))

	var images []*photo.Image
	for img := range lib.Images(dir, recursive) {
		images = append(images, img)
	}

	if sortKey != "" {
		slices.SortFunc(images, photo.Compare(photo.CompareKeyFromString(sortKey), reversed))
	}

	infos := make([]ImageInfo, 0, len(images))
	for _, img := range images {
		infos = append(infos, imageInfo(img))
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, infos)
}

// GetThumbnail serves the low-quality proxy of a photo, producing and
// caching it on first request
func (h *Handlers) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	lib := h.libraryFromRequest(w, r)
	if lib == nil {
		return
	}
	fileID, ok := fileIDFromRequest(w, r)
	if !ok {
		return
	}

	img, err := lib.ImageByFileID(fileID)
	if err != nil {
		if errors.Is(err, library.ErrNotFound) {
			writeJSONError(w, "Image not found", http.StatusNotFound)
			return
		}
		writeJSONError(w, "Failed to resolve image", http.StatusInternalServerError)
		return
	}

	// Sized requests get their own cache entry so one caller's size
	// never serves another caller's request.
	opts := photo.HostOptions{Thumbnail: true}
	cacheBase := "low.jpg"
	if size, err := strconv.Atoi(r.URL.Query().Get("size")); err == nil && size > 0 {
		opts.Size = image.Point{X: size, Y: size}
		cacheBase = fmt.Sprintf("low%d.jpg", size)
	}

	cachePath := lib.CacheFilePath(img.ImageID(), cacheBase)
	if _, err := os.Stat(cachePath); err == nil {
		metrics.PrefetchCacheHits.WithLabelValues("hit").Inc()
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Cache-Control", "private, max-age=3600")
		http.ServeFile(w, r, cachePath)
		return
	}
	metrics.PrefetchCacheHits.WithLabelValues("miss").Inc()

	proxy, err := h.decoder.LowQuality(img.ImageAbsPath(), opts)
	if err != nil {
		logging.Warn("thumbnail decode failed for %s: %v", img.ImagePath(), err)
		writeJSONError(w, "Failed to decode image", http.StatusUnprocessableEntity)
		return
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, proxy, &jpeg.Options{Quality: 85}); err != nil {
		writeJSONError(w, "Failed to encode thumbnail", http.StatusInternalServerError)
		return
	}

	// Cache write is best effort; the response does not depend on it.
	if err := os.WriteFile(cachePath, buf.Bytes(), 0o644); err != nil {
		logging.Warn("failed to cache thumbnail %s: %v", cachePath, err)
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if _, err := w.Write(buf.Bytes()); err != nil {
		logging.Debug("thumbnail write aborted: %v", err)
	}
}
