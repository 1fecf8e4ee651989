// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/z5labs/rampart/rest"
)

type Order struct {
	ProductID string `json:"product_id" required:"true"`
	Quantity  int    `json:"quantity" required:"true" minimum:"1"`
}

type OrderConfirmation struct {
	OrderID string `json:"order_id"`
}

func send(url, body string) {
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	fmt.Println("Status:", resp.Status)
	fmt.Print("Response: ", string(b))
}

// ExampleNewProblemDetailsErrorHandler shows the violations of an invalid
// request body reported as a Problem Details response.
func ExampleNewProblemDetailsErrorHandler() {
	handler := rest.HandlerFunc[Order, OrderConfirmation](func(ctx context.Context, o *Order) (*OrderConfirmation, error) {
		return &OrderConfirmation{OrderID: "1"}, nil
	})

	api := rest.NewApi(
		"Orders",
		"v1.0.0",
		rest.Operation(
			http.MethodPost,
			rest.BasePath("/orders"),
			rest.HandleJson(handler),
			rest.OnError(rest.NewProblemDetailsErrorHandler(
				rest.WithDefaultType("https://shop.example.com/problems/"),
			)),
		),
	)

	srv := httptest.NewServer(api)
	defer srv.Close()

	send(srv.URL+"/orders", `{"quantity":0}`)
	// Output:
	// Status: 422 Unprocessable Entity
	// Response: {"type":"https://shop.example.com/problems/invalid-request-body","title":"Invalid Request Body","status":422,"detail":"[object Object] should have required property 'product_id', [object Object].quantity should be >= 1"}
}

// ExampleNewProblemDetailsErrorHandler_secureByDefault shows that the cause
// of an unexpected error is never sent to the client.
func ExampleNewProblemDetailsErrorHandler_secureByDefault() {
	handler := rest.HandlerFunc[Order, OrderConfirmation](func(ctx context.Context, o *Order) (*OrderConfirmation, error) {
		return nil, fmt.Errorf("inserting order: connection to orders-db:5432 refused")
	})

	api := rest.NewApi(
		"Orders",
		"v1.0.0",
		rest.Operation(
			http.MethodPost,
			rest.BasePath("/orders"),
			rest.HandleJson(handler),
			rest.OnError(rest.NewProblemDetailsErrorHandler()),
		),
	)

	srv := httptest.NewServer(api)
	defer srv.Close()

	send(srv.URL+"/orders", `{"product_id":"pencil","quantity":1}`)
	// Output:
	// Status: 500 Internal Server Error
	// Response: {"type":"about:blank","title":"Internal Server Error","status":500,"detail":"An internal server error occurred."}
}

type OutOfStockError struct {
	rest.ProblemDetail
	ProductID string `json:"product_id"`
}

// ExampleProblemDetail shows a custom error carrying extension fields.
func ExampleProblemDetail() {
	handler := rest.HandlerFunc[Order, OrderConfirmation](func(ctx context.Context, o *Order) (*OrderConfirmation, error) {
		return nil, OutOfStockError{
			ProblemDetail: rest.ProblemDetail{
				Type:   "https://shop.example.com/problems/out-of-stock",
				Title:  "Out of Stock",
				Status: http.StatusConflict,
				Detail: o.ProductID + " can not be ordered right now",
			},
			ProductID: o.ProductID,
		}
	})

	api := rest.NewApi(
		"Orders",
		"v1.0.0",
		rest.Operation(
			http.MethodPost,
			rest.BasePath("/orders"),
			rest.HandleJson(handler),
			rest.OnError(rest.NewProblemDetailsErrorHandler()),
		),
	)

	srv := httptest.NewServer(api)
	defer srv.Close()

	send(srv.URL+"/orders", `{"product_id":"pencil","quantity":3}`)
	// Output:
	// Status: 409 Conflict
	// Response: {"type":"https://shop.example.com/problems/out-of-stock","title":"Out of Stock","status":409,"detail":"pencil can not be ordered right now","product_id":"pencil"}
}
