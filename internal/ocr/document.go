package ocr

import (
	"path/filepath"
	"strings"
)

// DocumentKind identifies which input variant a Document carries
type DocumentKind int

const (
	KindPath DocumentKind = iota + 1
	KindBytes
	KindBase64
)

func (k DocumentKind) String() string {
	switch k {
	case KindPath:
		return "path"
	case KindBytes:
		return "bytes"
	case KindBase64:
		return "base64"
	default:
		return "unknown"
	}
}

// DefaultFilename is used for in-memory documents uploaded without a name.
const DefaultFilename = "invoice.pdf"

// MIME types inferred from file extensions
const (
	MIMEPDF  = "application/pdf"
	MIMEPNG  = "image/png"
	MIMEJPEG = "image/jpeg"
)

// Document is a single input: a file on disk, an in-memory buffer or a
// base64 string. Exactly one variant is set; use the From* constructors.
type Document struct {
	kind   DocumentKind
	path   string
	data   []byte
	name   string
	base64 string
}

// FromPath references a file that is streamed from disk at send time
func FromPath(path string) Document {
	return Document{kind: KindPath, path: path}
}

// FromBytes wraps an in-memory buffer. name may be empty.
func FromBytes(data []byte, name string) Document {
	return Document{kind: KindBytes, data: data, name: name}
}

// FromBase64 wraps a base64 string, with or without a data: URI prefix
func FromBase64(s string) Document {
	return Document{kind: KindBase64, base64: s}
}

// Kind reports the active variant
func (d Document) Kind() DocumentKind {
	return d.kind
}

// Filename is the name sent in multipart uploads
func (d Document) Filename() string {
	switch d.kind {
	case KindPath:
		return filepath.Base(d.path)
	case KindBytes:
		if d.name != "" {
			return d.name
		}
		return DefaultFilename
	default:
		return ""
	}
}

// MIMEType is the content type hinted by the document's extension
func (d Document) MIMEType() string {
	switch d.kind {
	case KindPath:
		return MIMEFromName(d.path)
	case KindBytes:
		return MIMEFromName(d.name)
	case KindBase64:
		if mt, _, ok := splitDataURI(d.base64); ok && mt != "" {
			return mt
		}
	}
	return MIMEJPEG
}

// MIMEFromName maps a file extension to a MIME type. Unknown extensions are
// treated as JPEG.
func MIMEFromName(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return MIMEPDF
	case ".png":
		return MIMEPNG
	default:
		return MIMEJPEG
	}
}

// splitDataURI splits "data:<mime>;base64,<payload>". ok is false when s is
// not a data URI.
func splitDataURI(s string) (mime, payload string, ok bool) {
	if !strings.HasPrefix(s, "data:") {
		return "", s, false
	}
	head, rest, found := strings.Cut(s, ",")
	if !found {
		return "", s, false
	}
	head = strings.TrimPrefix(head, "data:")
	head = strings.TrimSuffix(head, ";base64")
	return head, rest, true
}

// StripDataURI removes a leading data: URI prefix, if present
func StripDataURI(s string) string {
	_, payload, _ := splitDataURI(s)
	return payload
}
