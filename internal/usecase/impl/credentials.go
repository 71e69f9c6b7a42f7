package impl

import (
	"unicode/utf8"

	"marketplace/internal/domain/entity"
	domainerrors "marketplace/internal/domain/errors"
	"marketplace/internal/errors"
	"marketplace/internal/usecase"
)

// checkPassword bounds a plaintext password: at least min characters and at
// most entity.MaxPasswordBytes bytes, the bcrypt input limit.
func checkPassword(password string, min int) error {
	if utf8.RuneCountInString(password) < min {
		return errors.WithStack(domainerrors.ErrPasswordTooShort)
	}
	if len(password) > entity.MaxPasswordBytes {
		return errors.WithStack(domainerrors.ErrPasswordTooLong)
	}

	return nil
}

// checkProfile validates the optional registration fields that were supplied.
func checkProfile(profile usecase.ProfileInput) error {
	if profile.Password != nil && *profile.Password != "" {
		if err := checkPassword(*profile.Password, entity.MinAccountPasswordLength); err != nil {
			return err
		}
	}
	if profile.FullName != nil && *profile.FullName != "" {
		if _, ok := entity.NormalizeFullName(*profile.FullName); !ok {
			return errors.WithStack(domainerrors.ErrInvalidFullName)
		}
	}

	return nil
}
