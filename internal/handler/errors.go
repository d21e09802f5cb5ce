package handler

import appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"

var errAsyncDisabled = appErrors.Clone(appErrors.ErrNotFound, "background generation is disabled")
