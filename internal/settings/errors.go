package settings

import "errors"

// ErrVersionTooNew is returned when a settings file was written by a newer
// meshwire than the one reading it.
var ErrVersionTooNew = errors.New("settings version too new")
