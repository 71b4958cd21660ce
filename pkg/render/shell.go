package render

import (
	"errors"
	"fmt"
	"strings"

	"github.com/matcha-dev/matcha/pkg/props"
	"github.com/matcha-dev/matcha/pkg/router"
)

const (
	// Outlet is the placeholder replaced by rendered markup.
	Outlet = "<!--ssr-outlet-->"

	// PropsGlobal is the window property holding the initial props.
	PropsGlobal = "__INITIAL_PROPS__"

	// ManifestGlobal is the window property holding the SSR manifest.
	ManifestGlobal = "__MATCHA_SSR_ROUTES__"

	// ShellFile is the shell artifact the request-time service renders into.
	ShellFile = "ssr-template.html"

	headClose = "</head>"
)

// Shell errors.
var (
	ErrNoOutlet = errors.New("shell has no " + Outlet + " placeholder")
	ErrNoHead   = errors.New("shell has no </head> tag")
)

// Shell is a parsed page template.
type Shell struct {
	before, after string
}

// ParseShell validates a template. It must contain the outlet placeholder
// and a </head> tag preceding it.
func ParseShell(template string) (*Shell, error) {
	idx := strings.Index(template, Outlet)
	if idx < 0 {
		return nil, ErrNoOutlet
	}
	if !strings.Contains(template[:idx], headClose) {
		return nil, ErrNoHead
	}
	return &Shell{before: template[:idx], after: template[idx+len(Outlet):]}, nil
}

// MustParseShell is ParseShell that panics on error.
func MustParseShell(template string) *Shell {
	s, err := ParseShell(template)
	if err != nil {
		panic(err)
	}
	return s
}

// String returns the template text, placeholder included.
func (s *Shell) String() string {
	return s.before + Outlet + s.after
}

// Inject produces the final document: markup at the outlet and the props
// and manifest scripts before </head>.
func (s *Shell) Inject(markup string, p props.Props, manifest *router.Manifest) (string, error) {
	scripts, err := Scripts(p, manifest)
	if err != nil {
		return "", err
	}

	head := strings.Replace(s.before, headClose, scripts+headClose, 1)

	var b strings.Builder
	b.Grow(len(head) + len(markup) + len(s.after))
	b.WriteString(head)
	b.WriteString(markup)
	b.WriteString(s.after)
	return b.String(), nil
}

// Scripts returns the two embedded-global script tags.
func Scripts(p props.Props, manifest *router.Manifest) (string, error) {
	propsJSON, err := props.Encode(p)
	if err != nil {
		return "", err
	}
	manifestJSON, err := manifest.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("encode ssr manifest: %w", err)
	}
	return "<script>window." + PropsGlobal + "=" + string(propsJSON) + "</script>" +
		"<script>window." + ManifestGlobal + "=" + string(manifestJSON) + "</script>", nil
}
