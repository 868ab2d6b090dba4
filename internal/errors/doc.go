// Package errors provides coded, categorised errors for the uploader.
//
// Every failure the widget can surface belongs to one category of the
// uploader's error taxonomy:
//   - validation: a selected file was rejected (unsupported type, too large)
//   - deletion: a remote file could not be deleted
//   - required: a required widget blocked form submission
//   - config: a widget attribute or config file could not be parsed
//   - transport: a live frame was malformed or rate limited
//   - storage: staged bytes could not be saved or read
//
// # Error Codes
//
// Each error has a unique code (e.g., "U010") that maps to a short message
// and a longer explanation in the registry.
//
// # Usage
//
//	err := errors.New("U011").
//	    WithDetail("photo.png is 7.20MB").
//	    Wrap(cause)
//
//	if errors.HasCode(err, "U011") {
//	    // size rejection
//	}
//
//	fmt.Println(err.Format())
package errors
