package repo

import "errors"

// ErrNotFound is returned when no row or document matches the query
var ErrNotFound = errors.New("not found")

// Stores bundles the repositories of one storage backend
type Stores struct {
	Otp      OtpRepo
	Users    UserRepo
	Products ProductRepo
}
