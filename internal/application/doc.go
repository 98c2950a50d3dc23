// Package application provides application initialization and dependency wiring.
// It loads the override sources into the snapshot store and builds the
// reloader, metrics, handlers, routers and HTTP server, keeping the main
// package focused on CLI parsing and orchestration.
package application
