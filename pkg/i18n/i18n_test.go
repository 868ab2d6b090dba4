package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLang(t *testing.T) {
	tests := map[string]Lang{
		"":      English,
		"en":    English,
		"EN-us": English,
		"ar":    Arabic,
		"AR":    Arabic,
		"ar-EG": Arabic,
		"fr":    English,
		"!!":    English,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLang(in), "input %q", in)
	}
}

func TestDir(t *testing.T) {
	assert.Equal(t, "rtl", Arabic.Dir())
	assert.Equal(t, "ltr", English.Dir())
}

func TestTranslateWithParams(t *testing.T) {
	tr := New(English)
	assert.Equal(t, "Drag & drop files here", tr.T(KeyDragDrop, tr.T(KeyFiles)))
	assert.Equal(t, "File size 7.20MB exceeds the maximum allowed size of 5.0MB", tr.T(KeyErrMaxSize, "7.20", "5.0"))
}

func TestTranslateArabic(t *testing.T) {
	tr := New(Arabic)
	assert.Equal(t, Arabic, tr.Lang())
	assert.Equal(t, "تم حذف الملف بنجاح", tr.T(KeySuccessDeleteFile))
}

func TestTranslateFallsBackToDefault(t *testing.T) {
	tables[English]["onlyEnglish"] = "english {0}"
	defer delete(tables[English], "onlyEnglish")

	tr := New(Arabic)
	assert.Equal(t, "english x", tr.T("onlyEnglish", "x"))
	assert.True(t, tr.Has("onlyEnglish"))
}

func TestTranslateMissingKeyReturnsKey(t *testing.T) {
	tr := New(English)
	assert.Equal(t, "no.such.key", tr.T("no.such.key"))
	assert.False(t, tr.Has("no.such.key"))

	var nilTr *Translator
	assert.Equal(t, "Remove file", nilTr.T(KeyRemoveFile))
}

func TestTranslateEmptyKey(t *testing.T) {
	tr := New(English)
	assert.Equal(t, Missing, tr.T(""))
	assert.Equal(t, Missing, tr.T("", "x"))
}

func TestTranslateParamsAreNotSubstitutedAgain(t *testing.T) {
	tr := New(English)
	assert.Equal(t,
		"File size {1}MB exceeds the maximum allowed size of 5.0MB",
		tr.T(KeyErrMaxSize, "{1}", "5.0"))
	assert.Equal(t, "Drag & drop {0} here", tr.T(KeyDragDrop, "{0}"))
}

func TestUnsupportedLanguageUsesEnglish(t *testing.T) {
	assert.Equal(t, English, New(Lang("de")).Lang())
}

func TestEveryEnglishKeyIsTranslated(t *testing.T) {
	for key := range tables[English] {
		_, ok := tables[Arabic][key]
		assert.True(t, ok, "missing arabic key %s", key)
	}
}
