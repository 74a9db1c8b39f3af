package locator

import (
	"slices"
	"strings"
)

// CopyMarker is the suffix file managers append to duplicated files,
// e.g. "report - Copy.pdf".
const CopyMarker = " - Copy"

// VersionSuffix is inserted before the extension of versioned copies.
const VersionSuffix = "_v2"

// SplitExt splits name into stem and extension at the last dot. Leading dots
// do not start an extension, so ".bashrc" has no extension and
// "archive.tar.gz" splits into "archive.tar" and ".gz".
func SplitExt(name string) (stem, ext string) {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 {
		return name, ""
	}
	if strings.Trim(name[:i], ".") == "" {
		return name, ""
	}
	return name[:i], name[i:]
}

// HasCopyMarker reports whether name carries the copy marker.
func HasCopyMarker(name string) bool {
	return strings.Contains(name, CopyMarker)
}

// StripCopy removes every occurrence of the copy marker from name.
func StripCopy(name string) string {
	return strings.ReplaceAll(name, CopyMarker, "")
}

// AddCopy inserts the copy marker before the extension of name.
func AddCopy(name string) string {
	stem, ext := SplitExt(name)
	return stem + CopyMarker + ext
}

// CopyVariant returns the mirrored copy-suffix variant of name: the stripped
// form when name carries the marker, otherwise the added form.
func CopyVariant(name string) string {
	if HasCopyMarker(name) {
		return StripCopy(name)
	}
	return AddCopy(name)
}

// Versioned inserts VersionSuffix before the extension of name.
func Versioned(name string) string {
	stem, ext := SplitExt(name)
	return stem + VersionSuffix + ext
}

// NameForms returns the distinct names accepted during other-location
// search: name itself, its stripped form and its added form.
func NameForms(name string) []string {
	forms := []string{name}
	for _, f := range []string{StripCopy(name), AddCopy(name)} {
		if !slices.Contains(forms, f) {
			forms = append(forms, f)
		}
	}
	return forms
}
