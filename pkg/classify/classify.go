// Package classify maps files to a display category and a short label.
//
// Pending files are classified by their declared MIME type first and their
// filename extension second. Remote files only have a URL, so they are
// classified by the extension of the URL path.
//
// Every function here is total: malformed input yields FILE or false.
package classify

import (
	"net/url"
	"path"
	"strings"
)

// Label is the short extension badge shown for non-image previews.
type Label string

const (
	PDF  Label = "PDF"
	DOC  Label = "DOC"
	XLS  Label = "XLS"
	PPT  Label = "PPT"
	TXT  Label = "TXT"
	ZIP  Label = "ZIP"
	IMG  Label = "IMG"
	VID  Label = "VID"
	FILE Label = "FILE"
)

// Class returns the css suffix used for the label's badge ("file-pdf", ...).
func (l Label) Class() string {
	switch l {
	case PDF, DOC, XLS, PPT, TXT, ZIP, IMG, VID:
		return strings.ToLower(string(l))
	default:
		return "default"
	}
}

var (
	videoMIMETypes = []string{
		"video/mp4",
		"video/webm",
		"video/ogg",
		"video/quicktime",
		"video/x-msvideo",
		"video/x-ms-wmv",
		"video/x-flv",
		"video/x-matroska",
		"video/x-m4v",
		"video/3gpp",
		"video/3gpp2",
	}

	spreadsheetMIMETypes = []string{
		"application/vnd.ms-excel",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"application/vnd.oasis.opendocument.spreadsheet",
		"application/vnd.ms-excel.sheet.macroenabled",
		"application/vnd.ms-excel.sheet.binary.macroenabled",
		"text/csv",
		"application/csv",
		"application/vnd.ms-excel.sheet.macroenabled.12",
	}

	wordMIMETypes = []string{
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.oasis.opendocument.text",
		"application/vnd.ms-word.document.macroenabled",
		"application/rtf",
	}

	presentationMIMETypes = []string{
		"application/vnd.ms-powerpoint",
		"application/vnd.openxmlformats-officedocument.presentationml.presentation",
		"application/vnd.oasis.opendocument.presentation",
		"application/vnd.ms-powerpoint.presentation.macroenabled",
	}
)

// extensionLabels maps a lower-cased extension (no dot) to its label.
var extensionLabels = map[string]Label{
	"pdf": PDF,

	"doc": DOC, "docx": DOC, "rtf": DOC, "odt": DOC,

	"xls": XLS, "xlsx": XLS, "xlsm": XLS, "xlsb": XLS, "csv": XLS, "ods": XLS,

	"ppt": PPT, "pptx": PPT, "pptm": PPT, "odp": PPT,

	"txt": TXT, "text": TXT, "md": TXT, "markdown": TXT,

	"zip": ZIP, "rar": ZIP, "7z": ZIP, "tar": ZIP, "gz": ZIP,

	"jpg": IMG, "jpeg": IMG, "png": IMG, "gif": IMG, "webp": IMG,
	"svg": IMG, "bmp": IMG, "tiff": IMG, "tif": IMG,

	"mp4": VID, "webm": VID, "ogg": VID, "mov": VID, "avi": VID, "wmv": VID,
	"flv": VID, "mkv": VID, "m4v": VID, "3gp": VID, "3g2": VID,
}

// imageURLExtensions and videoURLExtensions are the allow-lists used to
// decide whether a remote file gets an inline preview.
var (
	imageURLExtensions = map[string]bool{
		"jpg": true, "jpeg": true, "png": true, "gif": true, "webp": true, "svg": true,
	}
	videoURLExtensions = map[string]bool{
		"mp4": true, "webm": true, "ogg": true, "mov": true, "avi": true, "wmv": true,
		"flv": true, "mkv": true, "m4v": true, "3gp": true, "3g2": true,
	}
)

// urlMIMETypes infers a MIME type for remote files from their extension.
var urlMIMETypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"svg":  "image/svg+xml",
	"pdf":  "application/pdf",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"xls":  "application/vnd.ms-excel",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"ppt":  "application/vnd.ms-powerpoint",
	"pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"txt":  "text/plain",
	"mp4":  "video/mp4",
	"webm": "video/webm",
	"ogg":  "video/ogg",
	"mov":  "video/quicktime",
	"avi":  "video/x-msvideo",
	"wmv":  "video/x-ms-wmv",
	"flv":  "video/x-flv",
	"mkv":  "video/x-matroska",
	"m4v":  "video/x-m4v",
	"3gp":  "video/3gpp",
	"3g2":  "video/3gpp2",
}

// DefaultMIMEType is used when a remote file's extension is unknown.
const DefaultMIMEType = "application/octet-stream"

// LabelFor classifies a pending file by declared MIME type, then by name.
func LabelFor(name, mimeType string) Label {
	if l, ok := labelForMIME(strings.ToLower(mimeType)); ok {
		return l
	}
	return labelForExtension(fileExtension(name))
}

// LabelForURL classifies a remote file by the extension of its URL path.
func LabelForURL(rawURL string) Label {
	return labelForExtension(urlExtension(rawURL))
}

func labelForMIME(t string) (Label, bool) {
	if t == "" {
		return "", false
	}
	switch {
	case strings.Contains(t, "pdf"):
		return PDF, true
	case strings.Contains(t, "image/"):
		return IMG, true
	case containsAny(t, videoMIMETypes) || strings.Contains(t, "video/"):
		return VID, true
	case containsAny(t, spreadsheetMIMETypes) ||
		containsAny(t, []string{"sheet", "excel", "spreadsheetml", "ms-excel"}):
		return XLS, true
	case containsAny(t, wordMIMETypes) ||
		containsAny(t, []string{"msword", "wordprocessingml"}):
		return DOC, true
	case containsAny(t, presentationMIMETypes) ||
		containsAny(t, []string{"powerpoint", "presentation"}):
		return PPT, true
	case strings.Contains(t, "text/"):
		return TXT, true
	case containsAny(t, []string{"zip", "compressed", "archive"}):
		return ZIP, true
	}
	return "", false
}

func labelForExtension(ext string) Label {
	if l, ok := extensionLabels[ext]; ok {
		return l
	}
	return FILE
}

// IsImageType reports whether a pending file's declared type is an image.
func IsImageType(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}

// IsVideoType reports whether a pending file's declared type is a video.
func IsVideoType(mimeType string) bool {
	return strings.HasPrefix(mimeType, "video/")
}

// IsImageURL reports whether a remote file's URL has an image extension.
func IsImageURL(rawURL string) bool {
	return imageURLExtensions[urlExtension(rawURL)]
}

// IsVideoURL reports whether a remote file's URL has a video extension.
func IsVideoURL(rawURL string) bool {
	return videoURLExtensions[urlExtension(rawURL)]
}

// MIMEFromURL infers a MIME type from the URL's extension.
func MIMEFromURL(rawURL string) string {
	if t, ok := urlMIMETypes[urlExtension(rawURL)]; ok {
		return t
	}
	return DefaultMIMEType
}

// NameFromURL returns the last path segment of rawURL without query or
// fragment, or "file" when there is none.
func NameFromURL(rawURL string) string {
	p := stripQuery(rawURL)
	if i := strings.LastIndex(p, "/"); i >= 0 {
		p = p[i+1:]
	}
	if p == "" {
		return "file"
	}
	if unescaped, err := url.PathUnescape(p); err == nil && unescaped != "" {
		return unescaped
	}
	return p
}

// fileExtension returns the lower-cased extension of name without the dot.
func fileExtension(name string) string {
	ext := path.Ext(strings.TrimSpace(name))
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// urlExtension returns the lower-cased extension of the URL path.
func urlExtension(rawURL string) string {
	return fileExtension(NameFromURL(rawURL))
}

func stripQuery(rawURL string) string {
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
