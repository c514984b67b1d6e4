package engine

import "errors"

var (
	errEmptyIndex       = errors.New("sparse index is empty")
	errEmptyIndexBounds = errors.New("bounds computed neither a lower nor an upper bracket")
)
