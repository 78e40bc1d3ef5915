// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads client configuration.
//
// Configuration comes from a single file named by the --config flag
// ([Load]) or the PUBSUB_CONFIG environment variable ([LoadFromEnv]).
// There is no search path and no per-field environment override: what
// the file says is what the client does.
//
// Files are YAML. A file ending in .json or .jsonc is read as JSON
// with comments and trailing commas; since JSON is a subset of YAML,
// both forms decode through the same struct tags.
//
// Path fields (auth.token_file, auth.identity_file, crypto.key_file,
// state_file) expand ${VAR} and ${VAR:-default}.
//
// Durations are Go duration strings ("2s", "5m"). [Config.Durations]
// and [Config.RetryPolicy] turn the textual settings into the values
// the engines take; [Config.Validate] reports every problem at once.
package config
