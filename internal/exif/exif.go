// Package exif extracts embedded image metadata (camera, lens,
// exposure, GPS, capture time, pixel dimensions) from raw bytes.
// Extraction failure is never fatal: any parse error yields an
// empty-but-valid Metadata value, only fatal to the fields it would
// have populated.
package exif

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"
	"time"

	goexif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"

	// Registered so image.DecodeConfig can read container dimensions.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// Tag group paths as flattened by go-exif. Scalar fields are probed
// root-first, then the EXIF sub-directory, because different vendors
// write the same fact under different groups.
const (
	groupRoot = "IFD"
	groupExif = "IFD/Exif"
	groupGPS  = "IFD/GPSInfo"
)

// scalarGroups is the probe order for scalar camera fields.
var scalarGroups = []string{groupRoot, groupExif}

// Metadata holds the structured fields extracted from an image.
// Every field is optional; the zero value is a valid empty result.
type Metadata struct {
	// Width and Height are pixel dimensions; zero when unknown or
	// inconsistent. When set, both are positive.
	Width  int
	Height int

	CameraMake   string
	CameraModel  string
	Lens         string
	Aperture     string
	ShutterSpeed string
	ISO          string
	FocalLength  string

	// TakenAt is the capture timestamp, nil when absent.
	TakenAt *time.Time

	// Latitude and Longitude are decimal degrees, nil when absent.
	Latitude  *float64
	Longitude *float64

	// Raw is the full flattened tag set serialized as JSON, kept
	// verbatim so future field-mapping changes never require
	// re-reading original files.
	Raw []byte
}

// HasLocation returns true when both GPS coordinates were extracted.
func (m *Metadata) HasLocation() bool {
	return m.Latitude != nil && m.Longitude != nil
}

// Extract parses embedded metadata from data. The returned Metadata
// is always valid; the error reports why extraction was partial and
// callers treat it as informational, never fatal.
func Extract(data []byte) (Metadata, error) {
	var meta Metadata

	// Container dimensions come from the image format itself and take
	// priority over any EXIF dimension tags.
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil && cfg.Width > 0 && cfg.Height > 0 {
		meta.Width = cfg.Width
		meta.Height = cfg.Height
	}

	rawExif, err := goexif.SearchAndExtractExif(data)
	if err != nil {
		if errors.Is(err, goexif.ErrNoExif) {
			return meta, nil
		}
		return meta, fmt.Errorf("exif: search: %w", err)
	}

	tags, _, err := goexif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return meta, fmt.Errorf("exif: parse: %w", err)
	}

	idx := indexTags(tags)

	meta.CameraMake = idx.scalar("Make")
	meta.CameraModel = idx.scalar("Model")
	meta.Lens = idx.scalar("LensModel", "Lens")
	meta.Aperture = idx.scalar("FNumber", "ApertureValue")
	meta.ShutterSpeed = idx.scalar("ExposureTime", "ShutterSpeedValue")
	meta.ISO = idx.scalar("ISOSpeedRatings", "PhotographicSensitivity", "ISO")
	meta.FocalLength = idx.scalar("FocalLength", "FocalLengthIn35mmFilm")
	meta.TakenAt = idx.timestamp("DateTimeOriginal", "DateTimeDigitized", "DateTime")

	if meta.Width == 0 || meta.Height == 0 {
		meta.Width, meta.Height = idx.dimensions()
	}

	meta.Latitude = idx.coordinate("GPSLatitude", "GPSLatitudeRef")
	meta.Longitude = idx.coordinate("GPSLongitude", "GPSLongitudeRef")

	meta.Raw = flatten(tags)

	return meta, nil
}

// tagIndex maps IFD path -> tag name -> tag, first occurrence wins.
type tagIndex map[string]map[string]goexif.ExifTag

func indexTags(tags []goexif.ExifTag) tagIndex {
	idx := make(tagIndex)
	for _, tag := range tags {
		group, ok := idx[tag.IfdPath]
		if !ok {
			group = make(map[string]goexif.ExifTag)
			idx[tag.IfdPath] = group
		}
		if _, ok := group[tag.TagName]; !ok {
			group[tag.TagName] = tag
		}
	}
	return idx
}

// lookup returns the tag under any scalar group, root group first.
func (idx tagIndex) lookup(name string, groups []string) (goexif.ExifTag, bool) {
	for _, group := range groups {
		if tag, ok := idx[group][name]; ok {
			return tag, true
		}
	}
	return goexif.ExifTag{}, false
}

// scalar resolves a logical field from a priority list of tag-name
// aliases. The first alias that reduces to a non-empty value wins.
func (idx tagIndex) scalar(aliases ...string) string {
	for _, alias := range aliases {
		if tag, ok := idx.lookup(alias, scalarGroups); ok {
			if v := reduceScalar(tag); v != "" {
				return v
			}
		}
	}
	return ""
}

// timestamp resolves the capture time from a priority list of
// datetime tag names.
func (idx tagIndex) timestamp(aliases ...string) *time.Time {
	for _, alias := range aliases {
		tag, ok := idx.lookup(alias, scalarGroups)
		if !ok {
			continue
		}
		value := reduceScalar(tag)
		if value == "" {
			continue
		}
		if t, err := time.Parse("2006:01:02 15:04:05", value); err == nil {
			return &t
		}
	}
	return nil
}

// dimensions resolves pixel dimensions from EXIF tags, in priority
// order ImageWidth/ImageLength then PixelXDimension/PixelYDimension.
// The first pair where both values are positive integers is accepted;
// partial or inconsistent pairs leave dimensions unset rather than
// storing a wrong value.
func (idx tagIndex) dimensions() (int, int) {
	pairs := [][2]string{
		{"ImageWidth", "ImageLength"},
		{"PixelXDimension", "PixelYDimension"},
	}
	for _, pair := range pairs {
		w, okW := idx.integer(pair[0])
		h, okH := idx.integer(pair[1])
		if okW && okH && w > 0 && h > 0 {
			return w, h
		}
	}
	return 0, 0
}

// integer resolves a tag to a positive integer if possible.
func (idx tagIndex) integer(name string) (int, bool) {
	tag, ok := idx.lookup(name, scalarGroups)
	if !ok {
		return 0, false
	}
	value := reduceScalar(tag)
	if value == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(value); err == nil {
		return n, true
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil && f == float64(int(f)) {
		return int(f), true
	}
	return 0, false
}

// coordinate reconstructs a decimal-degree GPS coordinate from the
// degree/minute/second component array and its hemisphere reference.
func (idx tagIndex) coordinate(valueName, refName string) *float64 {
	tag, ok := idx[groupGPS][valueName]
	if !ok {
		return nil
	}
	components := rationalComponents(tag.Value)
	if len(components) == 0 {
		return nil
	}

	ref := ""
	if refTag, ok := idx[groupGPS][refName]; ok {
		ref = reduceScalar(refTag)
	}

	decimal := dmsToDecimal(components, ref)
	return &decimal
}

// dmsToDecimal converts up to three degree/minute/second components
// into decimal degrees, negated for the S and W hemispheres. Fewer
// components degrade gracefully.
func dmsToDecimal(components []float64, ref string) float64 {
	decimal := components[0]
	if len(components) > 1 {
		decimal += components[1] / 60
	}
	if len(components) > 2 {
		decimal += components[2] / 3600
	}
	switch strings.ToUpper(strings.TrimSpace(ref)) {
	case "S", "W":
		decimal = -decimal
	}
	return decimal
}

// rationalComponents converts a rational-array tag value into floats.
func rationalComponents(value interface{}) []float64 {
	switch v := value.(type) {
	case []exifcommon.Rational:
		out := make([]float64, 0, len(v))
		for _, r := range v {
			if r.Denominator == 0 {
				return nil
			}
			out = append(out, float64(r.Numerator)/float64(r.Denominator))
		}
		return out
	case []exifcommon.SignedRational:
		out := make([]float64, 0, len(v))
		for _, r := range v {
			if r.Denominator == 0 {
				return nil
			}
			out = append(out, float64(r.Numerator)/float64(r.Denominator))
		}
		return out
	}
	return nil
}

// reduceScalar reduces a tag value to a single scalar string. A
// rational pair reduces to its quotient; an array reduces to its
// first parseable element.
func reduceScalar(tag goexif.ExifTag) string {
	switch v := tag.Value.(type) {
	case string:
		return strings.TrimSpace(v)
	case []string:
		if len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
	case []exifcommon.Rational:
		if len(v) > 0 && v[0].Denominator != 0 {
			return formatFloat(float64(v[0].Numerator) / float64(v[0].Denominator))
		}
	case []exifcommon.SignedRational:
		if len(v) > 0 && v[0].Denominator != 0 {
			return formatFloat(float64(v[0].Numerator) / float64(v[0].Denominator))
		}
	case []uint16:
		if len(v) > 0 {
			return strconv.Itoa(int(v[0]))
		}
	case []uint32:
		if len(v) > 0 {
			return strconv.FormatUint(uint64(v[0]), 10)
		}
	case []int32:
		if len(v) > 0 {
			return strconv.FormatInt(int64(v[0]), 10)
		}
	case []float64:
		if len(v) > 0 {
			return formatFloat(v[0])
		}
	}
	if tag.FormattedFirst != "" {
		return strings.TrimSpace(tag.FormattedFirst)
	}
	return strings.TrimSpace(tag.Formatted)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// flatten serializes every tag into an opaque JSON blob keyed by
// "<ifd-path>/<tag-name>".
func flatten(tags []goexif.ExifTag) []byte {
	flat := make(map[string]string, len(tags))
	for _, tag := range tags {
		key := tag.IfdPath + "/" + tag.TagName
		if _, ok := flat[key]; ok {
			continue
		}
		flat[key] = tag.Formatted
	}
	blob, err := json.Marshal(flat)
	if err != nil {
		return nil
	}
	return blob
}
