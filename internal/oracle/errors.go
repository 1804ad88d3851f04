package oracle

import (
	"errors"

	"github.com/rcliao/wingo/internal/predict"
)

var (
	// ErrInvalidSerial is returned for submissions that are not all digits.
	ErrInvalidSerial = predict.ErrInvalidSerial

	// ErrNoPendingSerial is returned for a correction from a chat that has
	// never submitted a serial.
	ErrNoPendingSerial = errors.New("no serial to correct")

	// ErrInvalidCorrection is returned for a correction body that is not
	// "<color> <size>".
	ErrInvalidCorrection = errors.New("invalid correction")
)
