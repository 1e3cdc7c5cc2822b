package models

import (
	"fmt"
	"strings"
)

// PreferredNameLocale is the names key used to build file names.
const PreferredNameLocale = "name:en"

var fileNameReplacer = strings.NewReplacer(" ", "_", "/", "_", "\\", "_")

// NormalizeName lowercases a display name and replaces spaces and path separators with underscores.
func NormalizeName(name string) string {
	return strings.ToLower(fileNameReplacer.Replace(strings.TrimSpace(name)))
}

// usableName reports whether a normalized name can stand as a path element.
// "." and ".." would resolve outside the name's own directory entry.
func usableName(name string) bool {
	return strings.Trim(name, ".") != ""
}

// CountryFileName returns the file-safe name of a country: its English name when known
// and usable, otherwise "country_<id>".
func CountryFileName(c CountryRecord) string {
	if name, ok := c.Metadata.Name(PreferredNameLocale); ok {
		if normalized := NormalizeName(name); usableName(normalized) {
			return normalized
		}
	}
	return fmt.Sprintf("country_%s", NormalizeName(c.ID.String()))
}

// ProvinceFileName returns the file-safe name of a province: its English name when known
// and usable, otherwise "province_<id>".
func ProvinceFileName(p ProvinceRecord) string {
	if name, ok := p.Metadata.Name(PreferredNameLocale); ok {
		if normalized := NormalizeName(name); usableName(normalized) {
			return normalized
		}
	}
	return fmt.Sprintf("province_%s", NormalizeName(p.ID.String()))
}
