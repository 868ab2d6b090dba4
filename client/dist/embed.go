package clientdist

import _ "embed"

// UploaderJS is the client script that connects a page to its live session.
//
// It is served at "/_uploader/client.js".
//
//go:embed uploader.js
var UploaderJS []byte
