package utils

import "unsafe"

// BytesToString views b as a string without copying. b must not be
// modified while the string is in use.
func BytesToString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(unsafe.SliceData(b), len(b))
}
