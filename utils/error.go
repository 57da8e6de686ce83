package utils

import "errors"

var ErrorRecordNotFound = errors.New("record not found")

// ErrorCorruptSnapshot marks a persisted JSON snapshot that no longer parses.
// It must reach the caller: a garbled invoice is worse than a failed read.
var ErrorCorruptSnapshot = errors.New("corrupt snapshot")
