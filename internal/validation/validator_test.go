// Shoprec - Hybrid Product Recommendation Engine
// Copyright 2026 Mercata Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercata/shoprec

package validation

import (
	"strings"
	"testing"
)

type trackRequest struct {
	UserID    string  `validate:"required,min=1,max=128"`
	ProductID string  `validate:"required"`
	Action    string  `validate:"required,oneof=view add_to_cart purchase like share remove_from_cart"`
	Price     float64 `validate:"omitempty,gte=0"`
}

func TestStructValid(t *testing.T) {
	req := trackRequest{UserID: "u1", ProductID: "p1", Action: "purchase", Price: 9.99}
	if err := Struct(&req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStructMissingRequired(t *testing.T) {
	req := trackRequest{Action: "view"}
	err := Struct(&req)
	if err == nil {
		t.Fatal("expected error for missing fields")
	}
	if len(err.Errors()) != 2 {
		t.Fatalf("got %d errors, want 2: %v", len(err.Errors()), err)
	}
	if !strings.Contains(err.Error(), "UserID is required") {
		t.Errorf("message missing UserID: %q", err.Error())
	}
	if !strings.Contains(err.Error(), "ProductID is required") {
		t.Errorf("message missing ProductID: %q", err.Error())
	}
}

func TestStructOneofMessage(t *testing.T) {
	req := trackRequest{UserID: "u1", ProductID: "p1", Action: "teleport"}
	err := Struct(&req)
	if err == nil {
		t.Fatal("expected error for unknown action")
	}
	msg := err.Message()
	if !strings.Contains(msg, "Action must be one of") {
		t.Errorf("message = %q, want oneof translation", msg)
	}
}

func TestStructRangeMessages(t *testing.T) {
	tests := []struct {
		name string
		req  trackRequest
		want string
	}{
		{
			name: "negative price",
			req:  trackRequest{UserID: "u1", ProductID: "p1", Action: "view", Price: -1},
			want: "Price must be greater than or equal to 0",
		},
		{
			name: "user id too long",
			req:  trackRequest{UserID: strings.Repeat("x", 200), ProductID: "p1", Action: "view"},
			want: "UserID must be at most 128 characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(&tt.req)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if got := err.Message(); got != tt.want {
				t.Errorf("Message() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidatorSingleton(t *testing.T) {
	if Validator() != Validator() {
		t.Error("Validator() returned different instances")
	}
}
