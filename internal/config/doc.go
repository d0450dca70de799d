// Package config loads gateway configuration from an optional config.yaml,
// a .env file and SCRY_-prefixed environment variables, in increasing order
// of precedence. Provider API keys are read separately from the credential
// variables named by llm.credential_env.
package config
