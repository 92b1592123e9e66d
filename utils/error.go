package utils

import "errors"

var ErrorRecordNotFound = errors.New("record not found")

// ErrorPanic is only for process bootstrap paths (cmd binaries).
func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}
