// Package static serves files and directory listings from a root directory.
package static

import (
	"fmt"
	"net/http"
	"path"
	"strings"
)

// Handler serves GET and HEAD requests from a root directory.
//
// Regular files are delegated to http.FileServer, which takes care of content
// types, conditional and range requests, and maps missing or unreadable files
// to 404 and 403. Directories are resolved here so that any of the configured
// index files can be served, falling back to a generated listing.
type Handler struct {
	root       http.FileSystem
	files      http.Handler
	indexFiles []string
}

// New returns a Handler rooted at dir. indexFiles are tried in order when a
// directory is requested.
func New(dir string, indexFiles []string) *Handler {
	root := http.Dir(dir)
	return &Handler{
		root:       root,
		files:      http.FileServer(root),
		indexFiles: indexFiles,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, fmt.Sprintf("Unsupported method (%q)", r.Method), http.StatusNotImplemented)
		return
	}

	upath := r.URL.Path
	if !strings.HasPrefix(upath, "/") {
		upath = "/" + upath
		r.URL.Path = upath
	}
	// Clean resolves ".." against "/", so nothing above the root is reachable.
	name := path.Clean(upath)

	dir, err := h.root.Open(name)
	if err != nil {
		h.files.ServeHTTP(w, r)
		return
	}
	defer dir.Close()

	fi, err := dir.Stat()
	if err != nil || !fi.IsDir() || !strings.HasSuffix(upath, "/") {
		// Files, plus the redirect that adds the trailing slash to directories.
		h.files.ServeHTTP(w, r)
		return
	}

	for _, index := range h.indexFiles {
		if h.serveIndex(w, r, path.Join(name, index)) {
			return
		}
	}
	serveListing(w, r, upath, dir)
}

// serveIndex serves name if it exists and is a regular file.
func (h *Handler) serveIndex(w http.ResponseWriter, r *http.Request, name string) bool {
	f, err := h.root.Open(name)
	if err != nil {
		return false
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil || fi.IsDir() {
		return false
	}
	http.ServeContent(w, r, fi.Name(), fi.ModTime(), f)
	return true
}
