// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package rest provides a framework for building OpenAPI-compliant RESTful
// HTTP applications whose request bodies are validated before they reach
// your handlers.
//
// # Overview
//
// The rest package provides:
//   - Automatic OpenAPI 3.0 schema generation
//   - Type-safe request/response handling
//   - Request body validation with ajv style error messages
//   - Parameter validation for headers, query params and path params
//   - RFC 7807 Problem Details error responses
//   - Health check endpoints (liveness/readiness)
//
// # Quick Start
//
//	api := rest.NewApi("Products", "v1.0.0")
//	http.ListenAndServe(":8080", api)
//
// The API automatically provides:
//   - OpenAPI schema at GET /openapi.json
//   - Health endpoints at GET /health/liveness and GET /health/readiness
//
// # Adding Operations
//
// Use [Operation] to register HTTP operations:
//
//	createProduct := rest.Operation(
//	    http.MethodPost,
//	    rest.BasePath("/products"),
//	    rest.HandleJson(handler),
//	    rest.Header("X-Request-ID", rest.Required()),
//	)
//	api := rest.NewApi("Products", "v1.0.0", createProduct)
//
// # Request Body Validation
//
// The request body declared by an operation is converted from its OpenAPI
// schema into JSON Schema and every request is checked against it. A body
// which fails validation is rejected with 422 Unprocessable Entity and a
// problem detail listing every violation:
//
//	[object Object] should have required property 'name', [object Object] should have required property 'price'
//
// A missing body for a required request body results in 400 Bad Request.
//
// Schemas may be shared across operations by registering them as components
// and referencing them from the request body:
//
//	api := rest.NewApi(
//	    "Products",
//	    "v1.0.0",
//	    rest.Component("Product", productSchema),
//	    rest.Operation(
//	        http.MethodPost,
//	        rest.BasePath("/products"),
//	        rest.HandleJson(handler),
//	        rest.RequestBodySpec(rest.JsonBodyRef("Product")),
//	    ),
//	)
//
// Use [SkipValidation] to opt a single operation out.
//
// # Path Building
//
//	path := rest.BasePath("/api/v1").Segment("products").Param("id")
//	// Results in: /api/v1/products/{id}
//
// # Error Handling
//
// Errors implementing [HttpResponseWriter] control the HTTP response. All
// other errors result in 500 Internal Server Error. Use [OnError] with
// [NewProblemDetailsErrorHandler] to customize error responses per operation.
package rest
