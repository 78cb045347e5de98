// Package repository contains the data-access layer: MySQL-backed stores
// for durable records and Redis-backed stores for ephemeral secrets
// (OTP digests, the token blacklist). Sentinel errors defined here let
// handlers map failures to precise HTTP responses without inspecting
// driver-specific error strings.
package repository

import "errors"

// ErrEmailExists is returned when an insert collides with the unique
// email index. Handlers translate this into HTTP 409.
var ErrEmailExists = errors.New("email already exists")

// ErrNotFound is returned when a referenced user no longer resolves to a
// record. Handlers translate this into HTTP 404 (or 401 during auth).
var ErrNotFound = errors.New("not found")
