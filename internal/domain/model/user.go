package model

import "fmt"

type UserID string

// 呼び出し元のロール。ゼロ値は不正扱い。
type Role uint8

const (
	roleUnknown Role = iota
	RoleStudent
	RoleAdmin
)

func ParseRole(s string) (Role, error) {
	switch s {
	case "student":
		return RoleStudent, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return roleUnknown, fmt.Errorf("unknown role %q", s)
	}
}

func (r Role) String() string {
	switch r {
	case RoleStudent:
		return "student"
	case RoleAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleAdmin
}

// Actor はリクエストごとの認証済み呼び出し元。
// 認証はしない。外部で発行されたトークンから組み立てる。
type Actor struct {
	UserID UserID
	Role   Role
}

func (a Actor) Valid() bool {
	return a.UserID != "" && a.Role.Valid()
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

func (a Actor) Owns(o Order) bool {
	return o.OwnerID == a.UserID
}
