// Package pusher uploads a finished package to the update server: it
// registers the package metadata, streams each object in chunks to the
// upload addresses the server hands back, and confirms completion.
package pusher
