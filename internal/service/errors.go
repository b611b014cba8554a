package service

import "errors"

var ErrBadRequest = errors.New("invalid plan request")
