// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow higher layers such as
// handlers and the reservation engine to distinguish between failure
// scenarios without inspecting driver errors.
package repository

import (
    "errors"

    "github.com/iliyamo/stagepass/internal/reservation"
)

// ErrForbidden is returned when the caller attempts an operation its role
// does not allow.  Handlers should translate this into an HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a write collides with existing state, such
// as a showtime whose seat grid already exists.  Handlers should translate
// this into an HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrShowtimeNotFound is shared with the reservation engine so a missing
// showtime can be matched with errors.Is on either side.
var ErrShowtimeNotFound = reservation.ErrShowtimeNotFound

// ErrMovieNotFound indicates that a movie lookup yielded no rows.
var ErrMovieNotFound = errors.New("movie not found")

// ErrUserNotFound indicates that a user lookup yielded no rows.
var ErrUserNotFound = errors.New("user not found")

// ErrEmailExists is returned by signup when the email is taken.
var ErrEmailExists = errors.New("email already exists")

// ErrTokenInvalid covers unknown, revoked and expired refresh tokens.
var ErrTokenInvalid = errors.New("refresh token invalid")
