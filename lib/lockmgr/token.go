package lockmgr

import "github.com/google/uuid"

// newOwnerToken returns a fresh random owner token (uuid v4)
func newOwnerToken() string {
	return uuid.NewString()
}
