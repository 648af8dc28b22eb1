package markup

import "errors"

var (
	// ErrUnparsableMarkup indicates the input could not be parsed as HTML
	ErrUnparsableMarkup = errors.New("markup could not be parsed")
)
