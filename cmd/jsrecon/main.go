// Package main provides the entry point for the jsrecon CLI.
//
// jsrecon crawls a website within its origin, collects the JavaScript it
// serves, and reports hard-coded secrets and client-side libraries with
// published vulnerabilities.
//
// Usage:
//
//	jsrecon scan <url>
//	jsrecon serve --listen :3001
//
// See --help for all available options.
package main

func main() {
	Execute()
}
