// Package model defines the data structures used throughout the application.
package model

// User is a row of the users table.
//
// ID is assigned by the database on insert and never changes afterwards.
// The four text fields are each NOT NULL and UNIQUE in the schema; the
// application never checks uniqueness itself.
type User struct {
	ID        int64  `json:"id"         db:"id"`
	FirstName string `json:"first_name" db:"first_name"`
	LastName  string `json:"last_name"  db:"last_name"`
	Username  string `json:"username"   db:"username"`
	Email     string `json:"email"      db:"email"`
}

// Column limits of the users table.
const (
	MaxFirstNameLength = 30
	MaxLastNameLength  = 30
	MaxUsernameLength  = 20
	MaxEmailLength     = 80
)

// UserInput is the request body of create and update.
//
// Fields are pointers so a missing key can be told apart from an empty
// string: a missing key is an error, an empty string is stored as given.
type UserInput struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Username  *string `json:"username"`
	Email     *string `json:"email"`
}

// MissingField returns the JSON name of the first absent field, or "".
func (in UserInput) MissingField() string {
	switch {
	case in.FirstName == nil:
		return "first_name"
	case in.LastName == nil:
		return "last_name"
	case in.Username == nil:
		return "username"
	case in.Email == nil:
		return "email"
	}
	return ""
}

// Apply overwrites all four fields of u. It must only be called once
// MissingField has returned "".
func (in UserInput) Apply(u *User) {
	u.FirstName = *in.FirstName
	u.LastName = *in.LastName
	u.Username = *in.Username
	u.Email = *in.Email
}
