package client

import (
	"errors"

	"github.com/dmitrijs2005/promptkeeper/internal/common"
)

var (
	ErrUnavailable           = errors.New("server unavailable")
	ErrUnauthorized          = common.ErrorUnauthorized
	ErrNotFound              = common.ErrorNotFound
	ErrLocalDataNotAvailable = errors.New("local data unavailable")
)
