// Package upload stages the bytes of files a user selects in a widget.
//
// Widget state lives on the server, so the bytes of a selected file have to
// reach the server before the widget can accept it. Large binary frames
// block the live connection, so the thin client stages each file with a
// plain HTTP POST and then reports the returned temp id over the socket:
//
//  1. User drops files or picks them in the hidden file input
//  2. Client POSTs each file to the staging endpoint
//  3. Server streams it to the Store (disk or S3) and returns its temp id
//  4. Client sends a "files" frame with the temp ids and file metadata
//  5. The widget validates the batch and keeps a Blob per accepted file
//
// Blobs are released, and the staged bytes deleted, when a file is
// rejected, removed, replaced or the widget is torn down.
//
// # Previews
//
// Image previews of pending files are served through one-shot tokens from
// Previews. A token is dropped after the image has been served once, when
// it expires, or when the widget renders again.
package upload
