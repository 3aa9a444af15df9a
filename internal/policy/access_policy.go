// Package policy は商品操作の権限判定。状態もI/Oも持たない純粋な関数だけを置く。
package policy

import (
	"catalog/internal/domain/model"
)

const (
	ReasonUnauthenticated = "unauthenticated"
	ReasonCreate          = "not allowed to create products"
	ReasonListAll         = "admin only"
	ReasonListOwn         = "not allowed to list seller products"
	ReasonMutate          = "not allowed to modify this product"
	ReasonAssignOwner     = "not allowed to assign another owner"
)

// 判定結果。allow か deny(reason)。
type Decision struct {
	Allowed bool
	Reason  string
}

func Allow() Decision {
	return Decision{Allowed: true}
}

func Deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// 認証済みとして扱える主体か
func authenticated(p model.Principal) bool {
	return p.UserID > 0 && p.Role.Valid()
}

func CanCreate(p model.Principal) Decision {
	if !authenticated(p) {
		return Deny(ReasonUnauthenticated)
	}
	if p.IsAdmin() || p.IsSeller() {
		return Allow()
	}
	return Deny(ReasonCreate)
}

func CanListAll(p model.Principal) Decision {
	if !authenticated(p) {
		return Deny(ReasonUnauthenticated)
	}
	if p.IsAdmin() {
		return Allow()
	}
	return Deny(ReasonListAll)
}

func CanListOwn(p model.Principal) Decision {
	if !authenticated(p) {
		return Deny(ReasonUnauthenticated)
	}
	if p.IsAdmin() || p.IsSeller() {
		return Allow()
	}
	return Deny(ReasonListOwn)
}

// 単品取得は認証済みなら誰でも可（所有者の制限なし）
func CanRead(p model.Principal) Decision {
	if !authenticated(p) {
		return Deny(ReasonUnauthenticated)
	}
	return Allow()
}

// adminか、所有者本人のsellerだけ変更・削除できる
func CanMutate(p model.Principal, ownerID int64) Decision {
	if !authenticated(p) {
		return Deny(ReasonUnauthenticated)
	}
	if p.IsAdmin() {
		return Allow()
	}
	if p.IsSeller() && ownerID == p.UserID {
		return Allow()
	}
	return Deny(ReasonMutate)
}

// 何かしらの商品を変更・削除できるロールか。
// 存在確認より先に判定して、権限のない主体に存在有無を漏らさない。
func CanMutateAny(p model.Principal) Decision {
	if !authenticated(p) {
		return Deny(ReasonUnauthenticated)
	}
	if p.IsAdmin() || p.IsSeller() {
		return Allow()
	}
	return Deny(ReasonMutate)
}

// 作成時のownerを決める。
// adminは指定したownerを使える（未指定なら自分）。それ以外は常に自分。
func BindOwner(p model.Principal, requestedOwnerID int64) (int64, Decision) {
	if d := CanCreate(p); !d.Allowed {
		return 0, d
	}
	if requestedOwnerID <= 0 || requestedOwnerID == p.UserID {
		return p.UserID, Allow()
	}
	if p.IsAdmin() {
		return requestedOwnerID, Allow()
	}
	return 0, Deny(ReasonAssignOwner)
}
