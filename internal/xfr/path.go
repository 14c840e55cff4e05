package xfr

import (
	"path"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// RootPath is the default remote folder.
const RootPath = "/"

// NormalizeFolder turns a caller-supplied folder into the canonical remote
// form: leading slash, no trailing slash, "/" separators, "." and ".."
// resolved without climbing above root, Unicode NFC. It is idempotent, and
// "foo/", "/foo" and "foo" all yield "/foo".
func NormalizeFolder(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	p = strings.Trim(p, "/")

	// Dropbox stores names in NFC; a decomposed name from a macOS shell
	// would otherwise address a different file.
	p = norm.NFC.String(p)

	return path.Clean("/" + p)
}

// remoteName returns the base name of a local filename using both / and \
// as separators, so uploads always flatten into the folder.
func remoteName(filename string) string {
	filename = strings.ReplaceAll(filename, `\`, "/")

	return norm.NFC.String(path.Base(filename))
}

// joinRemote places name inside folder.
func joinRemote(folder, name string) string {
	return path.Join(folder, name)
}
