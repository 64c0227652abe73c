package domain

import "errors"

// ErrUnconvertible marks a conversion failure that retrying cannot fix,
// such as a missing, corrupt or oversized source file.
var ErrUnconvertible = errors.New("media cannot be converted")

// ConversionRequest is one unit of asynchronous conversion work.
type ConversionRequest struct {
	Id          string
	Media       Media
	Conversions []ConversionName
}
