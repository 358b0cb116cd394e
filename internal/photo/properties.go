package photo

import (
	"encoding/json"
	"fmt"
)

// Key identifies an image property. Keys are closed: the engine only
// routes the enumerated keys below, split into user-editable explicit
// properties and read-only implicit properties derived from the files.
type Key string

// Explicit and EXIF-derived property keys.
const (
	KeyName               Key = "Name"
	KeyActiveType         Key = "ActiveType"
	KeyFileTypes          Key = "FileTypes"
	KeyPixelWidth         Key = "PixelWidth"
	KeyPixelHeight        Key = "PixelHeight"
	KeyOrientation        Key = "Orientation"
	KeyColorModel         Key = "ColorModel"
	KeyProfileName        Key = "ProfileName"
	KeyTitle              Key = "Title"
	KeyCaption            Key = "Caption"
	KeyKeywords           Key = "Keywords"
	KeyCopyright          Key = "Copyright"
	KeyRating             Key = "Rating"
	KeyFlagged            Key = "Flagged"
	KeyHidden             Key = "Hidden"
	KeyAltitude           Key = "Altitude"
	KeyCameraMake         Key = "CameraMake"
	KeyCameraModel        Key = "CameraModel"
	KeyCameraSoftware     Key = "CameraSoftware"
	KeyContrast           Key = "Contrast"
	KeyDigitizedDate      Key = "DigitizedDate"
	KeyDirection          Key = "Direction"
	KeyDirectionRef       Key = "DirectionRef"
	KeyExposureBias       Key = "ExposureBias"
	KeyExposureLength     Key = "ExposureLength"
	KeyExposureMode       Key = "ExposureMode"
	KeyExposureProgram    Key = "ExposureProgram"
	KeyFlash              Key = "Flash"
	KeyFlashCompensation  Key = "FlashCompensation"
	KeyFNumber            Key = "FNumber"
	KeyFocalLength        Key = "FocalLength"
	KeyFocalLength35mm    Key = "FocalLength35mm"
	KeyFocusMode          Key = "FocusMode"
	KeyISOSpeed           Key = "ISOSpeed"
	KeyImageStabilization Key = "ImageStabilization"
	KeyLatitude           Key = "Latitude"
	KeyLightSource        Key = "LightSource"
	KeyLongitude          Key = "Longitude"
	KeyMaxAperture        Key = "MaxAperture"
	KeyMeteringMode       Key = "MeteringMode"
	KeyOriginalDate       Key = "OriginalDate"
	KeySaturation         Key = "Saturation"
	KeySceneCaptureType   Key = "SceneCaptureType"
	KeySceneType          Key = "SceneType"
	KeySensitivityType    Key = "SensitivityType"
	KeySharpness          Key = "Sharpness"
	KeyWhiteBalance       Key = "WhiteBalance"
)

// Read-only implicit property keys.
const (
	KeyFileName Key = "FileName"
	KeyFilePath Key = "FilePath"
	KeyFileDate Key = "FileDate"
	KeyFileSize Key = "FileSize"
	KeyRejected Key = "Rejected"
)

// uiEditableKeys are the properties the UI layer may offer for editing.
var uiEditableKeys = map[Key]bool{
	KeyName:      true,
	KeyTitle:     true,
	KeyCaption:   true,
	KeyKeywords:  true,
	KeyCopyright: true,
	KeyRating:    true,
	KeyFlagged:   true,
	KeyHidden:    true,
}

// EditableInUI reports whether the key is user-editable in the UI.
func EditableInUI(key Key) bool {
	return uiEditableKeys[key]
}

// ValueKind discriminates the Value tagged union.
type ValueKind int

const (
	// KindString is a string value.
	KindString ValueKind = iota
	// KindNumber is a numeric value.
	KindNumber
	// KindBool is a boolean value.
	KindBool
	// KindList is a list-of-strings value.
	KindList
)

// Value is a property value: one of string, number, bool, or list of
// strings. The zero Value is the empty string.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
	list []string
}

// String creates a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number creates a numeric value.
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

// Bool creates a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// List creates a list-of-strings value.
func List(items ...string) Value { return Value{kind: KindList, list: items} }

// Kind returns the value's kind.
func (v Value) Kind() ValueKind { return v.kind }

// AsString returns the string form of the value. Numbers and booleans
// are formatted; lists return their first element.
func (v Value) AsString() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return fmt.Sprintf("%g", v.num)
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindList:
		if len(v.list) > 0 {
			return v.list[0]
		}
	}
	return ""
}

// AsNumber returns the numeric form of the value and whether the value
// is numeric. Booleans convert to 0/1.
func (v Value) AsNumber() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindBool:
		if v.b {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// AsBool returns the boolean form of the value. Numbers are true when
// non-zero; other kinds are false.
func (v Value) AsBool() bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.num != 0
	default:
		return false
	}
}

// AsList returns the list form of the value. A string value yields a
// single-element list.
func (v Value) AsList() []string {
	switch v.kind {
	case KindList:
		return v.list
	case KindString:
		if v.str == "" {
			return nil
		}
		return []string{v.str}
	default:
		return nil
	}
}

// Equal reports whether two values have the same kind and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if v.list[i] != o.list[i] {
				return false
			}
		}
		return true
	}
	return false
}

// MarshalJSON encodes the value as its natural JSON form.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	case KindList:
		if v.list == nil {
			return json.Marshal([]string{})
		}
		return json.Marshal(v.list)
	}
	return json.Marshal(nil)
}

// UnmarshalJSON decodes a value from its natural JSON form.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case string:
		*v = String(t)
	case float64:
		*v = Number(t)
	case bool:
		*v = Bool(t)
	case []interface{}:
		items := make([]string, 0, len(t))
		for _, it := range t {
			s, ok := it.(string)
			if !ok {
				return fmt.Errorf("list property contains non-string element %T", it)
			}
			items = append(items, s)
		}
		*v = List(items...)
	case nil:
		*v = String("")
	default:
		return fmt.Errorf("unsupported property value type %T", t)
	}
	return nil
}
