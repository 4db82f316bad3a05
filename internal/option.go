package internal

import "github.com/starford/raido/internal/store"

// Option is a functional option for configuring the application.
type Option func(*application)

// Modes carries the CLI-surface switches into Run.
type Modes struct {
	// All processes the whole corpus instead of the delta.
	All bool
	// DryRun logs intended operations without calling the store.
	DryRun bool
	// Watch stays resident and re-syncs on corpus changes.
	Watch bool
	// MCP serves the MCP tools on stdio instead of running a sync.
	MCP bool
	// Paths is an explicit locator override (authoritative delta source).
	Paths []string
}

type application struct {
	config *Config
	modes  Modes
	client store.Client
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithModes sets the run modes parsed from the CLI.
func WithModes(m Modes) Option {
	return func(a *application) {
		a.modes = m
	}
}

// WithStoreClient injects a store client, replacing the HTTP one built
// from config. Used by tests.
func WithStoreClient(c store.Client) Option {
	return func(a *application) {
		a.client = c
	}
}
