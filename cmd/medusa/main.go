// Package main provides the entry point for the medusa CLI.
//
// medusa crawls a website and reports how many pages sit at each link
// distance from the root URL.
//
// Usage:
//
//	medusa pagedepth <url>
//	medusa history [url]
//
// See --help for all available options.
package main

// main is the entry point for medusa.
func main() {
	Execute()
}
