// Package controller provides output adapters for presenting harness results
// to the person running the CLI.
package controller

import (
	m "github.com/toabey/gnat-llvm/internal/model"
)

// UI defines the interface for displaying build and invocation results.
// Implementations can use different output methods; the CLI ships a plain
// printer.
type UI interface {
	// DisplayBuildResult shows the outcome of one compile, including the
	// compiler diagnostics on failure.
	DisplayBuildResult(report m.BuildReport) error

	// DisplayCallResult shows the value one bound symbol returned.
	DisplayCallResult(decl m.Func, value any) error

	// DisplayReports renders the stored build-report history as a table.
	DisplayReports(reports []m.BuildReport) error
}
