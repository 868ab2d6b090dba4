package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Validation Errors (U010-U019)
	// ============================================

	"U010": {
		Category: CategoryValidation,
		Message:  "Unsupported file type",
		Detail:   "A file in the batch did not match the widget's accept specification. The whole batch was rejected.",
	},
	"U011": {
		Category: CategoryValidation,
		Message:  "File too large",
		Detail:   "A file in the batch exceeded the widget's maximum size. The whole batch was rejected.",
	},
	"U012": {
		Category: CategoryValidation,
		Message:  "Staged file not found",
		Detail:   "The intake referenced a temp id that the staging store does not know.",
	},

	// ============================================
	// Deletion Errors (U020-U029)
	// ============================================

	"U020": {
		Category: CategoryDeletion,
		Message:  "Deletion request failed",
		Detail:   "The deletion endpoint returned a non-success status or could not be reached.",
	},
	"U021": {
		Category: CategoryDeletion,
		Message:  "Invalid deletion URL",
		Detail:   "The deletion URL could not be resolved against the page URL.",
	},

	// ============================================
	// Required Errors (U030-U039)
	// ============================================

	"U030": {
		Category: CategoryRequired,
		Message:  "Required file missing",
		Detail:   "A required widget had no pending files when its form was submitted.",
	},

	// ============================================
	// Config Errors (U040-U049)
	// ============================================

	"U040": {
		Category: CategoryConfig,
		Message:  "Malformed existing files",
		Detail:   "The data-existing-files attribute is not valid JSON or holds an invalid entry. The entry was skipped.",
	},
	"U041": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "The uploader.json file could not be read or parsed.",
	},
	"U042": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		Detail:   "A configuration value is out of range.",
	},
	"U043": {
		Category: CategoryConfig,
		Message:  "No configuration file",
		Detail:   "No uploader.json was found.",
	},

	// ============================================
	// Transport Errors (U050-U059)
	// ============================================

	"U050": {
		Category: CategoryTransport,
		Message:  "Invalid frame",
		Detail:   "A live frame from the client could not be decoded.",
	},
	"U051": {
		Category: CategoryTransport,
		Message:  "Rate limited",
		Detail:   "The client sent events faster than the session allows.",
	},
	"U052": {
		Category: CategoryTransport,
		Message:  "Page not found",
		Detail:   "The page id is unknown or the page has expired.",
	},
	"U053": {
		Category: CategoryTransport,
		Message:  "Form submission failed",
		Detail:   "The form action could not be reached.",
	},

	// ============================================
	// Storage Errors (U060-U069)
	// ============================================

	"U060": {
		Category: CategoryStorage,
		Message:  "Staging failed",
		Detail:   "The uploaded bytes could not be written to the staging store.",
	},
	"U061": {
		Category: CategoryStorage,
		Message:  "Staged file unreadable",
		Detail:   "The staged bytes could not be read back from the staging store.",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
