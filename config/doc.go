// Package config builds and validates pipeline configuration.
//
// Three construction paths:
//   - Default(serverURL, node, apiKey, secret) for programmatic use
//   - Load(path) for YAML files, with secrets resolved indirectly via
//     api_key_env / secret_env environment variable names
//   - FromEnv(node, secret) from LOGFLUX_* environment variables,
//     with .env support via godotenv
//
// All paths end in validate(), which enforces the same rules: http(s)
// server URL, "lf_"-prefixed API key, positive queue size and worker
// count, backoff factor >= 1, non-negative intervals.
//
// Watch(ctx, path, onChange) reloads the file on fsnotify events,
// keeping the previous config when a reload fails to parse or
// validate.
package config
