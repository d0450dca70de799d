// Package mocks provides test doubles for the generation gateway's ports.
package mocks
