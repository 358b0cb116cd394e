package exifprops

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rwcarlsen/goexif/exif"

	"photo-catalog/internal/logging"
	"photo-catalog/internal/metrics"
	"photo-catalog/internal/photo"
)

// Cache stores extracted implicit properties keyed by stable file id.
// Entries are validated against the file modification time so edits on
// disk invalidate stale rows.
type Cache interface {
	Get(fileID uint32, modTime time.Time) (map[photo.Key]photo.Value, bool)
	Put(fileID uint32, rel string, modTime time.Time, props map[photo.Key]photo.Value)
}

// Source extracts implicit properties for files under one library root.
type Source struct {
	root  string
	cache Cache // nil disables caching
}

// NewSource creates a Source rooted at the given absolute directory.
func NewSource(root string, cache Cache) *Source {
	return &Source{root: root, cache: cache}
}

// ImplicitProperties returns the file-derived properties for a
// library-relative path. The stat fields are always present; EXIF
// fields are added when the file carries a parseable header. A file
// that cannot be stat'ed yields nil.
func (s *Source) ImplicitProperties(rel string, fileID uint32) map[photo.Key]photo.Value {
	abs := filepath.Join(s.root, filepath.FromSlash(rel))

	fi, err := os.Stat(abs)
	if err != nil {
		logging.Debug("Cannot stat %s for implicit properties: %v", abs, err)
		return nil
	}

	if s.cache != nil && fileID != 0 {
		if props, ok := s.cache.Get(fileID, fi.ModTime()); ok {
			metrics.MetadataCacheTotal.WithLabelValues("hit").Inc()
			return props
		}
		metrics.MetadataCacheTotal.WithLabelValues("miss").Inc()
	}

	start := time.Now()
	props := map[photo.Key]photo.Value{
		photo.KeyFileName: photo.String(filepath.Base(abs)),
		photo.KeyFilePath: photo.String(rel),
		photo.KeyFileDate: photo.Number(float64(fi.ModTime().Unix())),
		photo.KeyFileSize: photo.Number(float64(fi.Size())),
	}
	readExif(abs, props)
	metrics.MetadataQueryDuration.WithLabelValues("extract").Observe(time.Since(start).Seconds())

	if s.cache != nil && fileID != 0 {
		s.cache.Put(fileID, rel, fi.ModTime(), props)
	}
	return props
}

// readExif merges EXIF header fields into props. Files without a
// parseable header (most RAW formats, plain JPEGs) contribute only
// their stat fields.
func readExif(abs string, props map[photo.Key]photo.Value) {
	f, err := os.Open(abs)
	if err != nil {
		return
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Warn("failed to close %s: %v", abs, err)
		}
	}()

	x, err := exif.Decode(f)
	if err != nil {
		logging.Debug("No EXIF data in %s: %v", abs, err)
		return
	}

	putString(x, exif.Make, props, photo.KeyCameraMake)
	putString(x, exif.Model, props, photo.KeyCameraModel)
	putString(x, exif.Software, props, photo.KeyCameraSoftware)
	putString(x, exif.GPSImgDirectionRef, props, photo.KeyDirectionRef)

	putInt(x, exif.Orientation, props, photo.KeyOrientation)
	putInt(x, exif.PixelXDimension, props, photo.KeyPixelWidth)
	putInt(x, exif.PixelYDimension, props, photo.KeyPixelHeight)
	putInt(x, exif.ISOSpeedRatings, props, photo.KeyISOSpeed)
	putInt(x, exif.Flash, props, photo.KeyFlash)
	putInt(x, exif.MeteringMode, props, photo.KeyMeteringMode)
	putInt(x, exif.WhiteBalance, props, photo.KeyWhiteBalance)
	putInt(x, exif.Contrast, props, photo.KeyContrast)
	putInt(x, exif.Saturation, props, photo.KeySaturation)
	putInt(x, exif.Sharpness, props, photo.KeySharpness)
	putInt(x, exif.SceneCaptureType, props, photo.KeySceneCaptureType)
	putInt(x, exif.LightSource, props, photo.KeyLightSource)
	putInt(x, exif.ExposureMode, props, photo.KeyExposureMode)
	putInt(x, exif.ExposureProgram, props, photo.KeyExposureProgram)
	putInt(x, exif.FocalLengthIn35mmFilm, props, photo.KeyFocalLength35mm)

	putRational(x, exif.FNumber, props, photo.KeyFNumber)
	putRational(x, exif.ExposureTime, props, photo.KeyExposureLength)
	putRational(x, exif.FocalLength, props, photo.KeyFocalLength)
	putRational(x, exif.ExposureBiasValue, props, photo.KeyExposureBias)
	putRational(x, exif.MaxApertureValue, props, photo.KeyMaxAperture)
	putRational(x, exif.GPSAltitude, props, photo.KeyAltitude)
	putRational(x, exif.GPSImgDirection, props, photo.KeyDirection)

	putDate(x, exif.DateTimeOriginal, props, photo.KeyOriginalDate)
	putDate(x, exif.DateTimeDigitized, props, photo.KeyDigitizedDate)

	if lat, long, err := x.LatLong(); err == nil {
		props[photo.KeyLatitude] = photo.Number(lat)
		props[photo.KeyLongitude] = photo.Number(long)
	}
}

func putString(x *exif.Exif, field exif.FieldName, props map[photo.Key]photo.Value, key photo.Key) {
	tag, err := x.Get(field)
	if err != nil {
		return
	}
	if s, err := tag.StringVal(); err == nil && s != "" {
		props[key] = photo.String(s)
	}
}

func putInt(x *exif.Exif, field exif.FieldName, props map[photo.Key]photo.Value, key photo.Key) {
	tag, err := x.Get(field)
	if err != nil {
		return
	}
	if n, err := tag.Int(0); err == nil {
		props[key] = photo.Number(float64(n))
	}
}

func putRational(x *exif.Exif, field exif.FieldName, props map[photo.Key]photo.Value, key photo.Key) {
	tag, err := x.Get(field)
	if err != nil {
		return
	}
	num, den, err := tag.Rat2(0)
	if err != nil || den == 0 {
		return
	}
	props[key] = photo.Number(float64(num) / float64(den))
}

// putDate converts the EXIF timestamp format to unix seconds.
func putDate(x *exif.Exif, field exif.FieldName, props map[photo.Key]photo.Value, key photo.Key) {
	tag, err := x.Get(field)
	if err != nil {
		return
	}
	s, err := tag.StringVal()
	if err != nil {
		return
	}
	t, err := time.Parse("2006:01:02 15:04:05", s)
	if err != nil {
		return
	}
	props[key] = photo.Number(float64(t.Unix()))
}
