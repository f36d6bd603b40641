// Package alerts delivers request events outside the application.
package alerts

import (
	"context"
	"errors"
)

// Sender delivers a plain-text alert. sent is false when the channel is not
// configured; that is not an error.
type Sender interface {
	Send(ctx context.Context, text string) (sent bool, err error)
}

// Multi sends through every configured sender.
type Multi []Sender

// Send reports sent when at least one sender delivered. Errors are joined.
func (m Multi) Send(ctx context.Context, text string) (bool, error) {
	var (
		anySent bool
		errs    []error
	)
	for _, s := range m {
		if s == nil {
			continue
		}
		sent, err := s.Send(ctx, text)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		anySent = anySent || sent
	}
	return anySent, errors.Join(errs...)
}
