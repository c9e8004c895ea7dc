package mqtt

import "errors"

// ErrNotConnected is returned when publishing before a connection exists.
var ErrNotConnected = errors.New("mqtt client not connected")
