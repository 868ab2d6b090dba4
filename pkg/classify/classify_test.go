package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabelFor(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		mimeType string
		want     Label
	}{
		{"pdf mime", "x", "application/pdf", PDF},
		{"image mime", "x", "image/png", IMG},
		{"explicit video mime", "x", "video/quicktime", VID},
		{"any video mime", "x", "video/x-new", VID},
		{"xlsx mime", "x", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", XLS},
		{"csv mime", "x", "text/csv", XLS},
		{"docx mime", "x", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", DOC},
		{"pptx mime", "x", "application/vnd.openxmlformats-officedocument.presentationml.presentation", PPT},
		{"text mime", "x", "text/plain", TXT},
		{"zip mime", "x", "application/x-zip-compressed", ZIP},
		{"xlsx by name", "report.XLSX", "", XLS},
		{"docx by name", "letter.docx", "", DOC},
		{"gz by name", "dump.tar.gz", "", ZIP},
		{"unknown mime falls back to name", "slides.odp", "application/x-unknown", PPT},
		{"nothing matches", "blob.xyz", "", FILE},
		{"no extension", "README", "", FILE},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LabelFor(tt.fileName, tt.mimeType))
		})
	}
}

func TestLabelForURL(t *testing.T) {
	assert.Equal(t, VID, LabelForURL("https://cdn.example.com/media/foo.mp4?v=2"))
	assert.Equal(t, PDF, LabelForURL("/storage/docs/Report.PDF#page=2"))
	assert.Equal(t, IMG, LabelForURL("https://cdn.example.com/a/b/c.jpeg"))
	assert.Equal(t, FILE, LabelForURL("https://cdn.example.com/download"))
	assert.Equal(t, FILE, LabelForURL(""))
}

func TestLabelClass(t *testing.T) {
	assert.Equal(t, "pdf", PDF.Class())
	assert.Equal(t, "vid", VID.Class())
	assert.Equal(t, "default", FILE.Class())
	assert.Equal(t, "default", Label("???").Class())
}

func TestImageAndVideoPredicates(t *testing.T) {
	assert.True(t, IsImageType("image/webp"))
	assert.False(t, IsImageType("application/pdf"))
	assert.False(t, IsImageType(""))

	assert.True(t, IsVideoType("video/mp4"))
	assert.False(t, IsVideoType("image/png"))

	assert.True(t, IsImageURL("https://x/y/photo.PNG?size=large"))
	assert.False(t, IsImageURL("https://x/y/photo.bmp"), "bmp is labelled IMG but not previewed")
	assert.True(t, IsVideoURL("/v/clip.mkv"))
	assert.False(t, IsVideoURL("%%%"))
}

func TestMIMEFromURL(t *testing.T) {
	assert.Equal(t, "image/jpeg", MIMEFromURL("https://x/a.JPG"))
	assert.Equal(t, "video/3gpp2", MIMEFromURL("https://x/a.3g2?x=1"))
	assert.Equal(t, DefaultMIMEType, MIMEFromURL("https://x/a.bin"))
}

func TestNameFromURL(t *testing.T) {
	assert.Equal(t, "foo.mp4", NameFromURL("https://cdn.example.com/media/foo.mp4?v=2"))
	assert.Equal(t, "my file.pdf", NameFromURL("/docs/my%20file.pdf#top"))
	assert.Equal(t, "file", NameFromURL("https://cdn.example.com/"))
	assert.Equal(t, "file", NameFromURL(""))
}
