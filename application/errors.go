package application

import "github.com/pkg/errors"

var (
	ErrApplicationNotSet = errors.New("application isn't set")
	ErrConnectionClosed  = errors.New("connection to the device was closed")
	ErrLoadFailed        = errors.New("device refused to load the media")
	ErrNoMediaPause      = errors.New("media not yet initialised, there is nothing to pause")
	ErrNoMediaStop       = errors.New("media not yet initialised, there is nothing to stop")
	ErrNoMediaUnpause    = errors.New("media not yet initialised, there is nothing to unpause")
	ErrRequestTimeout    = errors.New("timed out waiting for a reply from the device")
	ErrVolumeOutOfRange  = errors.New("specified volume is out of range (0 - 1)")
)
