package model

// 認証済みの操作主体。認証はmiddlewareで済んでいる前提。
type Principal struct {
	UserID int64
	Role   Role
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

func (p Principal) IsSeller() bool {
	return p.Role == RoleSeller
}
