package application

import (
	"errors"
	"fmt"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/routing"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/platform/apperror"
	"github.com/paulmach/orb"
)

// GraphUnavailableError reports that no search graph could be built for a
// region. Err is the loader's failure, or routing.ErrEmptyGraph when the
// region holds no road data.
type GraphUnavailableError struct {
	Region orb.Bound
	Err    error
}

func (e *GraphUnavailableError) Error() string {
	if e.Empty() {
		return "no road network covers the requested area"
	}
	return fmt.Sprintf("road network unavailable: %v", e.Err)
}

// Unwrap exposes the cause together with the 503 application error, so both
// errors.Is on the cause and apperror.As work.
func (e *GraphUnavailableError) Unwrap() []error {
	return []error{e.Err, apperror.NewUnavailableError("road network unavailable", nil)}
}

// Empty reports whether the region holds no road data. Retrying cannot
// change that until new data is imported.
func (e *GraphUnavailableError) Empty() bool {
	return errors.Is(e.Err, routing.ErrEmptyGraph)
}
