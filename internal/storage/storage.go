// Package storage provides the injected persistence capability backing
// the cart. Carts are persisted as one JSON payload per key; readers
// must tolerate absent keys, and writers own the full payload
// (read-modify-write happens in the caller).
package storage

// Storage is the key-value persistence capability. Read reports whether
// the key was present; an absent key is not an error.
type Storage interface {
	Read(key string) ([]byte, bool, error)
	Write(key string, data []byte) error
	Delete(key string) error
}
