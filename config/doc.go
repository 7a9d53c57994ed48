// Copyright 2026 novaroute Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package config manages the router's configuration lifecycle.

# Overview

config owns the full lifecycle of the router's configuration: multi-source
loading, runtime hot reload, change auditing, and an HTTP management API.
Configuration is merged with precedence "defaults -> YAML file ->
environment variables".

# Core types

  - Config: top-level aggregate covering Server, Router, Redis, Database,
    Log, Telemetry.
  - Loader: builder-style loader chaining file path, env prefix, and a
    custom validator.
  - HotReloadManager: file-watching hot-reload manager with partial-field
    updates, change callbacks, and a log of recent changes.
  - FileWatcher: polling + debounce based file-change watcher driving
    reloads.
  - ConfigAPIHandler: HTTP handler exposing config query, update,
    hot-reload trigger, and change-history endpoints.

# Capabilities

  - Multi-source loading: YAML file, environment variables (ROUTER_
    prefix), defaults.
  - Hot reload: automatic reload on file change plus manual API trigger,
    with field-level updates.
  - Safety: sensitive-field redaction (SanitizedConfig), API key read from
    the X-API-Key header or the api_key query parameter, a configurable
    CORS origin.
  - Change auditing: a change log trimmed to the most recent 1000
    entries; there is no version tracking and no rollback.
  - Validation: built-in checks plus a custom hook via
    Loader.WithValidator.

# Usage

	cfg, err := config.NewLoader().
		WithConfigPath("config.yaml").
		WithEnvPrefix("ROUTER").
		Load()
*/
package config
