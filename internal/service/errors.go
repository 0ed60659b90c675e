package service

import "errors"

var (
	ErrInvalidEmail        = errors.New("invalid email address")
	ErrAlreadyInvited      = errors.New("this email has already been invited")
	ErrAlreadyRegistered   = errors.New("this email is already registered")
	ErrInvitationNotFound  = errors.New("invitation not found")
	ErrInviteInvalid       = errors.New("invalid or expired invitation code")
	ErrInviteConflict      = errors.New("invitation was consumed concurrently")
	ErrEmailMismatch       = errors.New("email does not match invitation")
	ErrEmailExists         = errors.New("an account with this email already exists")
	ErrWeakPassword        = errors.New("password must be at least 8 characters")
	ErrPasswordTooLong     = errors.New("password must be at most 72 bytes")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrRefreshTokenInvalid = errors.New("refresh token invalid or revoked")
	ErrUserNotFound        = errors.New("user not found")
	ErrUserDisabled        = errors.New("user is disabled")
	ErrCategoryNotFound    = errors.New("category not found")
	ErrCategoryExists      = errors.New("a category with this slug already exists")
	ErrInvalidCategory     = errors.New("invalid category")
	ErrMediaNotFound       = errors.New("media not found")
	ErrInvalidOrder        = errors.New("invalid sort order")
	ErrInvalidFileType     = errors.New("invalid file type: only video files are allowed")
	ErrAlreadyImported     = errors.New("this video has already been imported")
	ErrFileNotFound        = errors.New("video file not found on server")
	ErrFileTooLarge        = errors.New("file exceeds the upload size limit")
	ErrInvalidTitle        = errors.New("title must not be empty")
	ErrNothingToUpdate     = errors.New("no valid data to update")
	ErrStorage             = errors.New("storage failure")
)

// Kind groups errors by how callers should react to them.
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindValidation
	KindStorage
)

var kinds = []struct {
	kind Kind
	errs []error
}{
	{KindUnauthorized, []error{ErrInvalidCredentials, ErrRefreshTokenInvalid}},
	{KindForbidden, []error{ErrUserDisabled}},
	{KindNotFound, []error{ErrInvitationNotFound, ErrUserNotFound, ErrCategoryNotFound, ErrMediaNotFound, ErrFileNotFound}},
	{KindConflict, []error{ErrAlreadyInvited, ErrAlreadyRegistered, ErrEmailExists, ErrInviteConflict, ErrCategoryExists, ErrAlreadyImported}},
	{KindValidation, []error{ErrInvalidEmail, ErrInviteInvalid, ErrEmailMismatch, ErrWeakPassword, ErrPasswordTooLong, ErrInvalidCategory, ErrInvalidOrder, ErrInvalidFileType, ErrFileTooLarge, ErrInvalidTitle, ErrNothingToUpdate}},
	{KindStorage, []error{ErrStorage}},
}

// KindOf classifies err; unknown errors are KindInternal.
func KindOf(err error) Kind {
	kind, _ := classify(err)
	return kind
}

// MessageOf returns the text of the sentinel err wraps, so wrapped detail never
// reaches clients. Unclassified errors get a generic message.
func MessageOf(err error) string {
	if _, sentinel := classify(err); sentinel != nil {
		return sentinel.Error()
	}
	return "internal server error"
}

func classify(err error) (Kind, error) {
	for _, k := range kinds {
		for _, e := range k.errs {
			if errors.Is(err, e) {
				return k.kind, e
			}
		}
	}
	return KindInternal, nil
}
