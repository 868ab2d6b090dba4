// Package formbridge connects widgets to the host form they live in.
//
// FindForm locates a widget's enclosing form in the host page. The Gate
// blocks submission while a required widget has no new files. Encode turns
// the form fields and every widget's files into a multipart body, and the
// Submitter forwards that body to the form action on the user's behalf.
package formbridge
