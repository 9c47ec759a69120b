// Package config provides configuration types and loading for edgegate.
//
// Configuration is read from a single YAML file decoded on top of
// DefaultConfig, so an empty file yields a working development gateway.
// ${VAR} and ${VAR:-default} references are substituted from the
// environment before decoding, and EDGEGATE_LOG_LEVEL / EDGEGATE_LOG_FORMAT
// override the logging section.
//
// Watcher reloads the file on change. A reloaded configuration that fails
// validation is discarded and the previous one stays active.
//
//	cfg, err := config.LoadConfig(path)
//	if err != nil {
//	    return err
//	}
//	if err := config.ValidateConfig(cfg); err != nil {
//	    return err
//	}
package config
