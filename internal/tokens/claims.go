package tokens

import "github.com/golang-jwt/jwt/v5"

// Subject identifies the user a token was issued for.
type Subject struct {
	Username string `json:"username"`
	ID       uint   `json:"id"`
}

type Claims struct {
	Username string `json:"username"`
	UserID   uint   `json:"id"`
	jwt.RegisteredClaims
}

func (c *Claims) Subject() Subject {
	return Subject{Username: c.Username, ID: c.UserID}
}
