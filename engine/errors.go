package engine

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// InvalidInputError are errors for caused by invalid inputs.
// It's useful to distinguish these known errors from exceptions.
// By distinguishing errors from exceptions, we can log them differently:
// errors caused by invalid input are logged and the message is dropped,
// exceptions stop the subsystem.
type InvalidInputError struct {
	err error
}

func NewInvalidInputError(msg string) error {
	return NewInvalidInputErrorf(msg)
}

func NewInvalidInputErrorf(msg string, args ...interface{}) error {
	return InvalidInputError{
		err: fmt.Errorf(msg, args...),
	}
}

func (e InvalidInputError) Unwrap() error {
	return e.err
}

func (e InvalidInputError) Error() string {
	return e.err.Error()
}

// IsInvalidInputError returns whether the given error is an InvalidInputError error
func IsInvalidInputError(err error) bool {
	var errInvalidInputError InvalidInputError
	return errors.As(err, &errInvalidInputError)
}

// UnexpectedMessageError is returned when a subsystem receives a message type it does not handle.
type UnexpectedMessageError struct {
	Message interface{}
}

func NewUnexpectedMessageError(msg interface{}) error {
	return NewInvalidInputErrorf("%w", UnexpectedMessageError{Message: msg})
}

func (e UnexpectedMessageError) Error() string {
	return fmt.Sprintf("invalid event type (%T)", e.Message)
}

// LogError logs the engine processing error
func LogError(log zerolog.Logger, err error) {
	if err == nil {
		return
	}
	if IsInvalidInputError(err) {
		log.Warn().Err(err).Msg("dropping invalid input")
		return
	}
	log.Error().Err(err).Msg("unexpected error processing message")
}
