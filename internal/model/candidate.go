package model

// Candidate is a test-taking user. Admin accounts share the record and are only
// allowed on the schedule endpoint.
type Candidate struct {
	ID           int    `json:"id" yaml:"id"`
	Username     string `json:"username" yaml:"username"`
	Name         string `json:"name" yaml:"name"`
	IsAdmin      bool   `json:"-" yaml:"admin"`
	PasswordHash string `json:"-" yaml:"passwordHash"`
	// Password is only read from seed fixtures and is hashed before use.
	Password string `json:"-" yaml:"password"`
}

// LoginRequest is the payload for candidate authentication.
type LoginRequest struct {
	Username string `json:"username" binding:"required,min=1,max=64"`
	Password string `json:"password" binding:"required,min=1,max=128"`
}

// LoginResult is returned on successful login.
type LoginResult struct {
	Token     string    `json:"token"`
	Candidate Candidate `json:"candidate"`
}
