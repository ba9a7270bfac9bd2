//go:build tools

package tools

import (
	// mockery generates the interface mocks under pkg/discovery/mocks.
	// Run: go run github.com/vektra/mockery/v2 (config in .mockery.yaml).
	_ "github.com/vektra/mockery/v2"
)
