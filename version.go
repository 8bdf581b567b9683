// Package ugsaction publishes game server builds to Unity Game Server Hosting
// by driving the vendored ugs command-line tool.
package ugsaction

// Version is overridden at build time.
var Version = "dev"
