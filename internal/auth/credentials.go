package auth

import (
	"crypto/subtle"
	"fmt"
	"strings"
)

// DefaultCredentials is the demo login used when nothing is configured.
const DefaultCredentials = "admin:admin123"

// Credentials is the configured set of username/password pairs.
//
// Passwords are kept in plain text: hashing is out of scope for this app and
// the set comes from configuration, not from user sign-up.
type Credentials struct {
	users map[string]string
}

// ParseCredentials reads "user:pass,user2:pass2". Whitespace around each
// entry and around usernames is ignored. Everything after the first colon is
// the password.
func ParseCredentials(list string) (*Credentials, error) {
	c := &Credentials{users: make(map[string]string)}

	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		user, pass, ok := strings.Cut(entry, ":")
		user = strings.TrimSpace(user)
		if !ok || user == "" || pass == "" {
			return nil, fmt.Errorf("auth: malformed credential entry %q, want user:password", entry)
		}
		if _, dup := c.users[user]; dup {
			return nil, fmt.Errorf("auth: duplicate credential for %q", user)
		}
		c.users[user] = pass
	}

	if len(c.users) == 0 {
		return nil, fmt.Errorf("auth: no credentials configured")
	}
	return c, nil
}

// Check reports whether username/password match a configured pair.
//
// CONSTANT-TIME COMPARISON:
// A plain == returns as soon as a byte differs, so response time leaks how
// much of the password was right. subtle.ConstantTimeCompare does not.
// Unknown users are still compared against a dummy so they take as long.
func (c *Credentials) Check(username, password string) bool {
	want, ok := c.users[username]
	if !ok {
		subtle.ConstantTimeCompare([]byte(password), []byte(password+"x"))
		return false
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(want)) == 1
}

// Len returns the number of configured users.
func (c *Credentials) Len() int {
	return len(c.users)
}
