package model

// 部分更新用の値。未指定(Unset)と指定済み(Set)を区別する。
// 0や空文字も「指定あり」として扱える。
type Optional[T any] struct {
	value T
	set   bool
}

func Set[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

func Unset[T any]() Optional[T] {
	return Optional[T]{}
}

// ポインタから作る（nilならUnset）
func FromPtr[T any](p *T) Optional[T] {
	if p == nil {
		return Optional[T]{}
	}
	return Set(*p)
}

func (o Optional[T]) IsSet() bool {
	return o.set
}

func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

// 指定があればその値、なければdef
func (o Optional[T]) OrElse(def T) T {
	if !o.set {
		return def
	}
	return o.value
}
