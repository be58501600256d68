package plans

import "errors"

var ErrInvalidPlanDocument = errors.New("plans: invalid plan document")
