package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

const docBase = "https://matcha.dev/docs/errors/"

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// Routes (E100-E119)
	"E100": {
		Category: CategoryRoute,
		Message:  "Route not found",
		Detail:   "No route in the table matches the path. Paths match exactly after one trailing slash is removed.",
		DocURL:   docBase + "E100",
	},
	"E101": {
		Category: CategoryRoute,
		Message:  "Duplicate route",
		Detail:   "Each path may be registered only once.",
		DocURL:   docBase + "E101",
	},
	"E102": {
		Category: CategoryRoute,
		Message:  "Invalid route path",
		Detail:   "Route paths must be absolute and must not end with a slash, except for the root \"/\".",
		DocURL:   docBase + "E102",
	},

	// Configuration (E120-E139)
	"E120": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "matcha.json could not be parsed.",
		DocURL:   docBase + "E120",
	},
	"E121": {
		Category: CategoryConfig,
		Message:  "Publish bucket not configured",
		Detail:   "Set publish.bucket in matcha.json or MATCHA_PUBLISH_BUCKET.",
		DocURL:   docBase + "E121",
	},
	"E122": {
		Category: CategoryConfig,
		Message:  "Invalid port",
		Detail:   "Ports must be between 1 and 65535.",
		DocURL:   docBase + "E122",
	},
	"E123": {
		Category: CategoryConfig,
		Message:  "Invalid output directory",
		Detail:   "The build output directory must be a relative path inside the project, other than the project root itself.",
		DocURL:   docBase + "E123",
	},

	// Build and artifacts (E140-E159)
	"E140": {
		Category: CategoryBuild,
		Message:  "Cannot write build output",
		Detail:   "The output directory could not be created or replaced.",
		DocURL:   docBase + "E140",
	},
	"E141": {
		Category: CategoryBuild,
		Message:  "Invalid page template",
		Detail:   "The page template must contain <!--ssr-outlet--> after a </head> tag.",
		DocURL:   docBase + "E141",
	},
	"E142": {
		Category: CategoryBuild,
		Message:  "Build failed",
		Detail:   "Site generation stopped. No artifacts were written.",
		DocURL:   docBase + "E142",
	},
	"E150": {
		Category: CategoryStorage,
		Message:  "Artifact not found",
		Detail:   "A required build artifact is missing from the artifact store.",
		DocURL:   docBase + "E150",
	},
	"E151": {
		Category: CategoryStorage,
		Message:  "Publish failed",
		Detail:   "Uploading build artifacts to the object store failed.",
		DocURL:   docBase + "E151",
	},
	"E152": {
		Category: CategoryCLI,
		Message:  "Server failed",
		Detail:   "The HTTP server stopped with an error.",
		DocURL:   docBase + "E152",
	},

	// Loaders and rendering (E200-E219)
	"E200": {
		Category: CategoryLoader,
		Message:  "Data loader failed",
		Detail:   "A static or request loader returned an error or panicked.",
		DocURL:   docBase + "E200",
	},
	"E201": {
		Category: CategoryLoader,
		Message:  "Props not serializable",
		Detail:   "Loader output must encode to a JSON object so it can cross the server/client boundary.",
		DocURL:   docBase + "E201",
	},
	"E202": {
		Category: CategoryRender,
		Message:  "Render failed",
		Detail:   "A page component returned an error while rendering.",
		DocURL:   docBase + "E202",
	},
}

// GetAllCodes returns all registered error codes in order.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
