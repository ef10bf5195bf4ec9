package app

import (
	"crypto/subtle"
	"net"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"quiz-round-service/internal/domain"
)

// Authorizer decides whether a caller may run destructive facilitator actions.
type Authorizer interface {
	Authorize(caller domain.Caller) bool
}

// AccessPolicy is the reset gate. When a token (plain or bcrypt hash) is
// configured the caller must present it; otherwise only callers on the
// local host are allowed.
type AccessPolicy struct {
	Token     string
	TokenHash string
}

func (p AccessPolicy) Authorize(caller domain.Caller) bool {
	switch {
	case p.TokenHash != "":
		if caller.Token == "" {
			return false
		}
		return bcrypt.CompareHashAndPassword([]byte(p.TokenHash), []byte(caller.Token)) == nil
	case p.Token != "":
		return subtle.ConstantTimeCompare([]byte(p.Token), []byte(caller.Token)) == 1
	default:
		return isLocal(caller.RemoteAddr)
	}
}

func isLocal(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
