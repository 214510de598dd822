package model

import "errors"

// Виды ошибок, которые HTTP-слой сопоставляет со статусами ответа.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrEmptyCart    = errors.New("cart is empty")
	ErrRateLimited  = errors.New("too many attempts")
)
