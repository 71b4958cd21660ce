package server

import (
	"path"

	"github.com/matcha-dev/matcha/pkg/render"
	"github.com/matcha-dev/matcha/pkg/router"
)

// Artifact keys the service reads at startup.
var (
	ManifestKey = path.Join("server", router.ManifestFile)
	ShellKey    = path.Join("server", render.ShellFile)
)
