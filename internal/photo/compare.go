package photo

import (
	"cmp"
	"strings"
)

// CompareKey selects the ordering used by the comparator factory.
type CompareKey int

// Enumerated compare keys.
const (
	CompareFileName CompareKey = iota
	CompareFileDate
	CompareFileSize
	CompareName
	CompareDate
	CompareKeywords
	CompareCaption
	CompareRating
	CompareFlagged
	CompareOrientation
	ComparePixelSize
	CompareAltitude
	CompareExposureLength
	CompareFNumber
	CompareISOSpeed
)

var compareKeyNames = map[CompareKey]string{
	CompareFileName:       "file-name",
	CompareFileDate:       "file-date",
	CompareFileSize:       "file-size",
	CompareName:           "name",
	CompareDate:           "date",
	CompareKeywords:       "keywords",
	CompareCaption:        "caption",
	CompareRating:         "rating",
	CompareFlagged:        "flagged",
	CompareOrientation:    "orientation",
	ComparePixelSize:      "pixel-size",
	CompareAltitude:       "altitude",
	CompareExposureLength: "exposure-length",
	CompareFNumber:        "f-number",
	CompareISOSpeed:       "iso-speed",
}

// String returns the stable string form of a compare key.
func (k CompareKey) String() string {
	if name, ok := compareKeyNames[k]; ok {
		return name
	}
	return "file-name"
}

// CompareKeyFromString returns the compare key for its string form.
// Unknown strings map to CompareFileName.
func CompareKeyFromString(s string) CompareKey {
	for k, name := range compareKeyNames {
		if name == s {
			return k
		}
	}
	return CompareFileName
}

// numericProperty returns the numeric property value for an image and
// whether it is present. Used for nulls-last ordering.
func numericProperty(i *Image, key Key) (float64, bool) {
	if v, ok := i.Property(key); ok {
		return v.AsNumber()
	}
	return 0, false
}

// compareNumeric orders two optional numeric values with absent values
// sorting after present ones.
func compareNumeric(a float64, aok bool, b float64, bok bool) int {
	switch {
	case aok && bok:
		return cmp.Compare(a, b)
	case aok:
		return -1
	case bok:
		return 1
	default:
		return 0
	}
}

func compareByFileName(a, b *Image) int {
	return strings.Compare(a.FileName(), b.FileName())
}

// Compare returns an ordering function for the given key. The result is
// negative, zero, or positive in the manner of cmp.Compare, with ties
// broken by file name and absent numeric values sorting last. The
// reversed flag inverts the primary ordering but not the tie-break.
func Compare(key CompareKey, reversed bool) func(a, b *Image) int {
	var primary func(a, b *Image) int

	switch key {
	case CompareFileName:
		primary = compareByFileName
	case CompareFileDate:
		primary = func(a, b *Image) int {
			return a.FileDate().Compare(b.FileDate())
		}
	case CompareFileSize:
		primary = func(a, b *Image) int {
			return cmp.Compare(a.FileSize(), b.FileSize())
		}
	case CompareName:
		primary = func(a, b *Image) int {
			return strings.Compare(a.Name(), b.Name())
		}
	case CompareDate:
		primary = func(a, b *Image) int {
			return a.Date().Compare(b.Date())
		}
	case CompareKeywords:
		primary = func(a, b *Image) int {
			av, _ := a.Property(KeyKeywords)
			bv, _ := b.Property(KeyKeywords)
			return strings.Compare(strings.Join(av.AsList(), " "), strings.Join(bv.AsList(), " "))
		}
	case CompareCaption:
		primary = func(a, b *Image) int {
			av, _ := a.Property(KeyCaption)
			bv, _ := b.Property(KeyCaption)
			return strings.Compare(av.AsString(), bv.AsString())
		}
	case CompareRating:
		primary = func(a, b *Image) int {
			return cmp.Compare(a.Rating(), b.Rating())
		}
	case CompareFlagged:
		primary = func(a, b *Image) int {
			return boolCompare(a.Flagged(), b.Flagged())
		}
	case CompareOrientation:
		primary = func(a, b *Image) int {
			return cmp.Compare(a.Orientation(), b.Orientation())
		}
	case ComparePixelSize:
		primary = func(a, b *Image) int {
			as, bs := a.PixelSize(), b.PixelSize()
			return cmp.Compare(as.X*as.Y, bs.X*bs.Y)
		}
	case CompareAltitude:
		primary = numericComparator(KeyAltitude)
	case CompareExposureLength:
		primary = numericComparator(KeyExposureLength)
	case CompareFNumber:
		primary = numericComparator(KeyFNumber)
	case CompareISOSpeed:
		primary = numericComparator(KeyISOSpeed)
	default:
		primary = compareByFileName
	}

	return func(a, b *Image) int {
		c := primary(a, b)
		if reversed {
			c = -c
		}
		if c == 0 {
			c = compareByFileName(a, b)
		}
		return c
	}
}

func numericComparator(key Key) func(a, b *Image) int {
	return func(a, b *Image) int {
		av, aok := numericProperty(a, key)
		bv, bok := numericProperty(b, key)
		return compareNumeric(av, aok, bv, bok)
	}
}

func boolCompare(a, b bool) int {
	switch {
	case a == b:
		return 0
	case b:
		return -1
	default:
		return 1
	}
}
