// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package endpoint implements the operations of the products API.
package endpoint

import "github.com/z5labs/rampart/rest"

const instrumentationName = "github.com/z5labs/rampart/example/products/endpoint"

func problems() rest.ErrorHandler {
	return rest.NewProblemDetailsErrorHandler(
		rest.WithDefaultType("https://products.example.com/problems/"),
		rest.WithViolations(),
	)
}
