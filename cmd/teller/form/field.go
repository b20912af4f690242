package form

import "strings"

const MsgRequired = "this field is required"

type Rule[T any] struct {
	Check   func(T) bool
	Message string
}

func Required() Rule[string] {
	return Rule[string]{
		Check:   func(s string) bool { return strings.TrimSpace(s) != "" },
		Message: MsgRequired,
	}
}

func Matches[T any](check func(T) bool, message string) Rule[T] {
	return Rule[T]{Check: check, Message: message}
}

type Field[T any] struct {
	value T
	err   string
	rules []Rule[T]
}

func NewField[T any](rules ...Rule[T]) *Field[T] {
	return &Field[T]{rules: rules}
}

func (f *Field[T]) Set(v T) {
	f.value = v
	f.err = ""
}

func (f *Field[T]) Value() T {
	return f.value
}

func (f *Field[T]) Err() string {
	return f.err
}

func (f *Field[T]) Valid() bool {
	return f.err == ""
}

func (f *Field[T]) Fail(message string) {
	f.err = message
}

func (f *Field[T]) ClearErr() {
	f.err = ""
}

func (f *Field[T]) Validate() bool {
	for _, r := range f.rules {
		if !r.Check(f.value) {
			f.err = r.Message
			return false
		}
	}
	f.err = ""
	return true
}

func (f *Field[T]) Reset() {
	var zero T
	f.value = zero
	f.err = ""
}
