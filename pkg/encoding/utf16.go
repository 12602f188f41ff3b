// Package encoding provides text and path encoding utilities for KSM assets.
package encoding

import (
	"path"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var utf16LE = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// UTF16ToUTF8 decodes little-endian UTF-16 code units into a UTF-8 string.
// Returns an empty string if decoding fails.
func UTF16ToUTF8(data []byte) string {
	result, _, err := transform.Bytes(utf16LE.NewDecoder(), data)
	if err != nil {
		return ""
	}
	return string(result)
}

// UTF8ToUTF16 encodes s as little-endian UTF-16.
// The code unit count is len(result)/2.
func UTF8ToUTF16(s string) []byte {
	result, _, err := transform.Bytes(utf16LE.NewEncoder(), []byte(s))
	if err != nil {
		return nil
	}
	return result
}

// CodeUnits returns the number of UTF-16 code units needed to encode s.
func CodeUnits(s string) int {
	return len(UTF8ToUTF16(s)) / 2
}

// NormalizeAssetPath converts backslashes to forward slashes and strips
// leading separators so the path can be used with io/fs.
func NormalizeAssetPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimLeft(p, "/")
	if p == "" {
		return p
	}
	return path.Clean(p)
}

// FileName returns the file name of an asset path, extension included.
func FileName(p string) string {
	p = NormalizeAssetPath(p)
	if p == "" {
		return ""
	}
	return path.Base(p)
}

// FileNameOnly returns the file name of an asset path without its extension.
func FileNameOnly(p string) string {
	name := FileName(p)
	return strings.TrimSuffix(name, path.Ext(name))
}
