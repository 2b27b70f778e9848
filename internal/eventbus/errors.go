package eventbus

import "errors"

// ErrClosed is returned by Publish/Subscribe on a closed bus.
var ErrClosed = errors.New("eventbus: closed")
