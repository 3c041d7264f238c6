// Package config defines the assistant's configuration model and
// handles loading it from YAML files with defaults, validation,
// environment overrides, and hot reload.
//
// Configuration is loaded once at startup:
//
//	cfg, err := config.LoadConfigWithEnvOverrides("vesta.yaml")
//	if err != nil {
//	    return err
//	}
//
// A Watcher can keep a running process in sync with edits to the file:
//
//	w, _ := config.NewWatcher("vesta.yaml", logger)
//	go w.Watch(ctx, func(cfg *config.Config) {
//	    // apply the new configuration
//	})
//
// Reloads that fail to parse or validate are logged and discarded, so
// a bad edit never takes down a running assistant.
package config
