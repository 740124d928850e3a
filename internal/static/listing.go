package static

import (
	"bytes"
	"io/fs"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// listEntry is one line of a directory listing.
type listEntry struct {
	display string
	href    string
}

func serveListing(w http.ResponseWriter, r *http.Request, upath string, dir http.File) {
	infos, err := dir.Readdir(-1)
	if err != nil {
		http.Error(w, "No permission to list directory", http.StatusNotFound)
		return
	}

	var buf bytes.Buffer
	if err := renderListing(&buf, upath, listEntries(infos)); err != nil {
		http.Error(w, "Error rendering directory listing", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		w.Write(buf.Bytes())
	}
}

// listEntries sorts infos case-insensitively and marks directories with a
// trailing "/" and symlinks with a trailing "@".
func listEntries(infos []fs.FileInfo) []listEntry {
	sort.Slice(infos, func(i, j int) bool {
		return strings.ToLower(infos[i].Name()) < strings.ToLower(infos[j].Name())
	})

	entries := make([]listEntry, 0, len(infos))
	for _, fi := range infos {
		display, link := fi.Name(), fi.Name()
		if fi.IsDir() {
			display += "/"
			link += "/"
		}
		if fi.Mode()&fs.ModeSymlink != 0 {
			display += "@"
		}
		// url.URL escapes the path and guards names like "a:b" from being
		// read as a scheme.
		href := (&url.URL{Path: link}).String()
		entries = append(entries, listEntry{display: display, href: href})
	}
	return entries
}

func renderListing(buf *bytes.Buffer, upath string, entries []listEntry) error {
	title := "Directory listing for " + upath

	list := element(atom.Ul, nil)
	for _, e := range entries {
		link := element(atom.A, []html.Attribute{{Key: "href", Val: e.href}}, text(e.display))
		list.AppendChild(element(atom.Li, nil, link))
	}

	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	doc.AppendChild(element(atom.Html, nil,
		element(atom.Head, nil,
			element(atom.Meta, []html.Attribute{{Key: "charset", Val: "utf-8"}}),
			element(atom.Title, nil, text(title)),
		),
		element(atom.Body, nil,
			element(atom.H1, nil, text(title)),
			element(atom.Hr, nil),
			list,
			element(atom.Hr, nil),
		),
	))
	return html.Render(buf, doc)
}

func element(a atom.Atom, attrs []html.Attribute, children ...*html.Node) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
	for _, c := range children {
		n.AppendChild(c)
	}
	return n
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}
