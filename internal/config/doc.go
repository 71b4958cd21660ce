// Package config loads matcha.json, the per-project configuration file.
//
// Every key can be overridden from the environment with the MATCHA_ prefix
// and dots replaced by underscores:
//
//	MATCHA_SERVE_PORT=8080
//	MATCHA_PUBLISH_BUCKET=my-site
//
// A project without matcha.json runs on defaults.
//
// # Schema
//
//	{
//	  "name": "docs",
//	  "build":   {"output": "dist", "template": "index.html", "clean": true},
//	  "serve":   {"host": "0.0.0.0", "port": 8080, "metrics": true, "artifacts": "dist"},
//	  "dev":     {"port": 5173, "watch": ["static"], "hotReload": true, "debounce": "100ms"},
//	  "publish": {"bucket": "my-site", "region": "eu-west-1", "prefix": "prod"}
//	}
package config
