// Package api is the HTTP adapter of the gateway. It decodes the single
// generation request shape, hands it to a Dispatcher and writes the
// {data}|{error} response envelope. Internal errors are mapped to status
// codes and sanitized messages in errors.go so provider details and keys
// never reach a client.
package api
