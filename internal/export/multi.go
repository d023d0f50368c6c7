package export

import (
	"context"
	"errors"

	"github.com/startuplens/ycscout/internal/directory"
)

// Multi fans one record set out to several sinks. Every sink gets a
// chance to write even when an earlier one fails; failures are joined.
type Multi []directory.Exporter

var _ directory.Exporter = (Multi)(nil)

// Export writes records to each sink in order.
func (m Multi) Export(ctx context.Context, records []directory.StartupRecord) error {
	var errs []error
	for _, e := range m {
		if err := e.Export(ctx, records); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
