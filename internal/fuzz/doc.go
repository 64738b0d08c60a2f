// Package fuzztests houses Go fuzz harnesses for the listing reader and the
// position mapper. They look for panics and broken invariants on arbitrary
// listing and model text.
//
// Не делает: запуск компилятора, запись файлов.
package fuzztests
