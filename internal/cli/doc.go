// Package cli implements the httpdispatch command.
//
//	httpdispatch do GET https://api.example.com/users/1
//	httpdispatch do POST /items --base-url https://api.example.com --json -d @item.json
//	httpdispatch do GET /feed --subscribers 3 -o yaml
//	httpdispatch bench GET /health -n 500 -c 20
//
// Configuration is loaded like any other dispatcher service: a config file,
// HTTPDISPATCH_* environment overrides, then flags.
package cli
