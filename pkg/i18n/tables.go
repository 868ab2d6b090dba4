package i18n

// Keys used by the widget.
const (
	KeyDragDrop          = "dragDropText"
	KeyFile              = "fileText"
	KeyFiles             = "filesText"
	KeyAcceptedTypes     = "acceptedTypesText"
	KeyMaxSize           = "maxSizeText"
	KeySelectFile        = "selectFileText"
	KeySelectFiles       = "selectFilesText"
	KeyDropFilesHere     = "dropFilesHereText"
	KeyPreviewFile       = "previewFileText"
	KeyRemoveFile        = "removeFileText"
	KeyNewUploader       = "newUploaderText"
	KeyNewUploaderTitle  = "newUploaderTitle"
	KeyPreviousFiles     = "previousFilesText"
	KeyNextFiles         = "nextFilesText"
	KeyErrUnsupported    = "errorUnsupportedType"
	KeyErrMaxSize        = "errorMaxSize"
	KeyErrRequired       = "errorRequired"
	KeyErrDeleteFile     = "errorDeleteFile"
	KeySuccessDeleteFile = "successDeleteFile"
)

var tables = map[Lang]map[string]string{
	English: {
		KeyDragDrop:          "Drag & drop {0} here",
		KeyFile:              "a file",
		KeyFiles:             "files",
		KeyAcceptedTypes:     "Accepted types:",
		KeyMaxSize:           "Max size:",
		KeySelectFile:        "Select File",
		KeySelectFiles:       "Select Files",
		KeyDropFilesHere:     "Drop files here",
		KeyPreviewFile:       "PREVIEW FILE",
		KeyRemoveFile:        "Remove file",
		KeyNewUploader:       "NEW UPLOADER",
		KeyNewUploaderTitle:  "Open New Uploader",
		KeyPreviousFiles:     "Previous files",
		KeyNextFiles:         "Next files",
		KeyErrUnsupported:    "Supported types is: {0}",
		KeyErrMaxSize:        "File size {0}MB exceeds the maximum allowed size of {1}MB",
		KeyErrRequired:       "{0} is required.",
		KeyErrDeleteFile:     "Unable to delete the file.",
		KeySuccessDeleteFile: "File successfully deleted",
	},
	Arabic: {
		KeyDragDrop:          "اسحب وأفلت {0} هنا",
		KeyFile:              "ملفًا",
		KeyFiles:             "ملفات",
		KeyAcceptedTypes:     "أنواع الملفات المقبولة:",
		KeyMaxSize:           "الحجم الأقصى:",
		KeySelectFile:        "اختر ملف",
		KeySelectFiles:       "اختر ملفات",
		KeyDropFilesHere:     "أفلت الملفات هنا",
		KeyPreviewFile:       "معاينة الملف",
		KeyRemoveFile:        "إزالة الملف",
		KeyNewUploader:       "رفع جديد",
		KeyNewUploaderTitle:  "فتح أداة رفع جديدة",
		KeyPreviousFiles:     "الملفات السابقة",
		KeyNextFiles:         "الملفات التالية",
		KeyErrUnsupported:    "أنواع الملفات المدعومة: {0}",
		KeyErrMaxSize:        "حجم الملف {0} ميجابايت يتجاوز الحد الأقصى المسموح به {1} ميجابايت",
		KeyErrRequired:       "{0} مطلوب.",
		KeyErrDeleteFile:     "تعذر حذف الملف.",
		KeySuccessDeleteFile: "تم حذف الملف بنجاح",
	},
}
