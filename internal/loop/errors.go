package loop

import (
	"errors"
	"fmt"
)

// ErrRewriteUnavailable reports that the rewrite capability failed; the loop halts.
var ErrRewriteUnavailable = errors.New("rewrite unavailable")

func asRewriteUnavailable(err error) error {
	if err == nil || errors.Is(err, ErrRewriteUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrRewriteUnavailable, err)
}
