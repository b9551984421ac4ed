// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package nimbus is the library surface of the nimbus.ai backend.
//
// The HTTP service lives under cmd/nimbusd and internal/; this package only
// exposes the stable greeting used by clients to check they are talking to a
// nimbus build.
package nimbus

// Greeting is the fixed greeting returned by ExampleFunction.
const Greeting = "Hello from nimbus.ai Rust library!"

// ExampleFunction returns the library greeting. It has no side effects and cannot fail.
func ExampleFunction() string {
	return Greeting
}
