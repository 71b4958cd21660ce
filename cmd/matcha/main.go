// Command matcha is the demo site: a static home page, an about page built
// from static/blog.md and a user profile rendered per request.
package main

import (
	"os"

	"github.com/matcha-dev/matcha"
)

// Version information set at build time.
var version = "dev"

func main() {
	app := matcha.New(matcha.WithVersion(version))
	register(app, "static/blog.md")
	if err := app.Execute(); err != nil {
		os.Exit(1)
	}
}

func register(app *matcha.App, blogPath string) {
	app.Page("/", Home)
	app.Page("/about", About, matcha.WithStaticLoader(blogLoader(blogPath)))
	app.Page("/user-profile", UserProfile,
		matcha.WithStaticLoader(buildInfo),
		matcha.WithRequestLoader(currentUser),
	)
}
