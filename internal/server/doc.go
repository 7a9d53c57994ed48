// Copyright 2024 novaroute Authors. Use of this source code is governed by
// an MIT license that can be found in the LICENSE file.

/*
Package server provides HTTP/HTTPS server lifecycle management: non-blocking
startup, graceful shutdown, and OS signal handling.

# Overview

Manager wraps net/http.Server, coordinating listen, serve, shutdown and
error propagation in one place. It supports plain HTTP and TLS startup,
with built-in SIGINT/SIGTERM handling for production shutdown.

cmd/router builds a Manager to serve /execute, /status, /health, /metrics
and the hot-reloadable /api/v1/config/* routes behind one listener; the
orchestrator's dedup/polling loops run independently and are unaffected by
Manager's shutdown beyond the HTTP surface going away.

# Core types

  - Manager: owns an http.Server, net.Listener and an asynchronous error
    channel, exposing Start/StartTLS/Shutdown/WaitForShutdown.
  - Config: listen address, read/write/idle timeouts, max header size and
    shutdown timeout. FromRouterConfig derives one from config.ServerConfig.

# Capabilities

  - Non-blocking startup: Start/StartTLS run the server on a background
    goroutine so the caller's main goroutine is free to block elsewhere.
  - Graceful shutdown: Shutdown drains in-flight requests within the
    configured timeout before releasing the listener.
  - Signal handling: WaitForShutdown listens for SIGINT/SIGTERM and
    triggers Shutdown automatically.
  - Error propagation: Errors() exposes an async channel for monitoring
    unexpected server exits.
  - TLS support: StartTLS accepts a certificate and key file.
  - Status queries: IsRunning/Addr report current state.
*/
package server
