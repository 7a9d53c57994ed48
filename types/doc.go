// Copyright (c) novaroute Authors.
// Licensed under the MIT License.

/*
Package types provides the globally shared type definitions for the
router layer.

# Overview

types is the lowest-level common package in the framework: it depends on
no internal package and supplies a unified type contract to adapters,
selector, simplerouter, orchestrator, and workflowengine. Every struct,
enum, and error code shared across packages is defined here to avoid
import cycles.

# Core types

  - Error / ErrorCode      — structured error system with HTTP status, Retryable, Provider tags
  - RouterResponse         — the unified response envelope for Simple Router / Workflow Engine
  - RequestConstraints     — caller-imposed constraints on provider/model selection
  - MediaOptions           — per-worker-type request options (system prompt, size, voice, etc.)
  - RoutingTier            — caller-supplied or classifier-derived tier of a text request (auto, text-only, code)
  - MediaResult            — adapter execution result (text, binary reference, token usage)
  - StepMeta               — per-call observability metadata (latency, cost, providers tried)

# Key capabilities

  - Error tooling: IsRetryable / GetErrorCode
  - Error construction: NewError chained with WithCause / WithHTTPStatus / WithRetryable / WithProvider
*/
package types
