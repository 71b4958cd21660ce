package client

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/matcha-dev/matcha/pkg/props"
	"github.com/matcha-dev/matcha/pkg/render"
	"github.com/matcha-dev/matcha/pkg/router"
)

// ErrNoInitialProps is returned when a document lacks the initial props
// script.
var ErrNoInitialProps = errors.New("document has no " + render.PropsGlobal + " script")

// Embedded holds the globals a server-rendered document carries.
type Embedded struct {
	Props    props.Props
	Manifest *router.Manifest
}

// ParseEmbedded extracts the initial props and SSR manifest from a served
// document. A document without a manifest script yields an empty manifest.
func ParseEmbedded(document string) (*Embedded, error) {
	z := html.NewTokenizer(strings.NewReader(document))

	var (
		emb      Embedded
		inScript bool
	)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if emb.Props == nil {
				return nil, ErrNoInitialProps
			}
			if emb.Manifest == nil {
				emb.Manifest = router.NewManifest()
			}
			return &emb, nil

		case html.StartTagToken:
			name, _ := z.TagName()
			inScript = atom.Lookup(name) == atom.Script

		case html.EndTagToken:
			inScript = false

		case html.TextToken:
			if !inScript {
				continue
			}
			if err := emb.assign(strings.TrimSpace(string(z.Text()))); err != nil {
				return nil, err
			}
		}
	}
}

func (e *Embedded) assign(script string) error {
	if value, ok := global(script, render.PropsGlobal); ok {
		p, err := props.Decode([]byte(value))
		if err != nil {
			return fmt.Errorf("parse %s: %w", render.PropsGlobal, err)
		}
		e.Props = p
		return nil
	}
	if value, ok := global(script, render.ManifestGlobal); ok {
		m, err := router.ParseManifest([]byte(value))
		if err != nil {
			return fmt.Errorf("parse %s: %w", render.ManifestGlobal, err)
		}
		e.Manifest = m
	}
	return nil
}

// global returns the right-hand side of "window.<name>=<value>".
func global(script, name string) (string, bool) {
	value, ok := strings.CutPrefix(script, "window."+name+"=")
	if !ok {
		return "", false
	}
	return strings.TrimSuffix(strings.TrimSpace(value), ";"), true
}
