package rewards

import "errors"

// Validation errors. They are detected before any mutation.
var (
	ErrPoolDoesNotExist          = errors.New("rewards: pool does not exist")
	ErrShareDoesNotExist         = errors.New("rewards: share does not exist")
	ErrCanSplitOnlyLessThanShare = errors.New("rewards: can split only less than share")
)

// IsValidation reports whether err is one of the validation errors.
func IsValidation(err error) bool {
	return errors.Is(err, ErrPoolDoesNotExist) ||
		errors.Is(err, ErrShareDoesNotExist) ||
		errors.Is(err, ErrCanSplitOnlyLessThanShare)
}
