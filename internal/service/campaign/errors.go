package campaign

import "errors"

// Sentinel errors for the campaign service layer.
var (
	ErrNotFound         = errors.New("campaign not found")
	ErrNoContacts       = errors.New("no contacts with an email address")
	ErrMissingAccountID = errors.New("account_id is required")
	ErrNotActive        = errors.New("campaign is not active")
	ErrContactNotFound  = errors.New("contact not found")
)
