package render

import (
	"fmt"
	"strings"
)

// Document describes the default page shell used when a project provides no
// template of its own.
type Document struct {
	// Title is the page title.
	Title string

	// Lang is the html lang attribute. Defaults to "en".
	Lang string

	// Meta contains extra meta tags.
	Meta []MetaTag

	// StyleSheets are stylesheet hrefs.
	StyleSheets []string

	// Scripts are module script srcs loaded at the end of the body, such as
	// the hydration entry point.
	Scripts []string
}

// MetaTag represents a meta element in the document head.
type MetaTag struct {
	Name     string
	Property string
	Content  string
}

// Template renders the document with the outlet placeholder inside
// <div id="app">.
func (d Document) Template() string {
	lang := d.Lang
	if lang == "" {
		lang = "en"
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n")
	fmt.Fprintf(&b, "<html lang=\"%s\">\n", escapeAttr(lang))
	b.WriteString("<head>\n")
	b.WriteString("  <meta charset=\"utf-8\">\n")
	b.WriteString("  <meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
	if d.Title != "" {
		fmt.Fprintf(&b, "  <title>%s</title>\n", escapeHTML(d.Title))
	}
	for _, m := range d.Meta {
		b.WriteString("  <meta")
		if m.Name != "" {
			fmt.Fprintf(&b, " name=\"%s\"", escapeAttr(m.Name))
		}
		if m.Property != "" {
			fmt.Fprintf(&b, " property=\"%s\"", escapeAttr(m.Property))
		}
		fmt.Fprintf(&b, " content=\"%s\">\n", escapeAttr(m.Content))
	}
	for _, href := range d.StyleSheets {
		fmt.Fprintf(&b, "  <link rel=\"stylesheet\" href=\"%s\">\n", escapeAttr(href))
	}
	b.WriteString("</head>\n")
	b.WriteString("<body>\n")
	b.WriteString("  <div id=\"app\">" + Outlet + "</div>\n")
	for _, src := range d.Scripts {
		fmt.Fprintf(&b, "  <script type=\"module\" src=\"%s\"></script>\n", escapeAttr(src))
	}
	b.WriteString("</body>\n</html>\n")
	return b.String()
}

// DefaultDocument is the shell used when no template is configured.
var DefaultDocument = Document{Title: "Matcha"}

// DefaultShell parses DefaultDocument.
func DefaultShell() *Shell {
	return MustParseShell(DefaultDocument.Template())
}
