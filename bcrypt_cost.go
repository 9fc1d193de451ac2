//go:build !race

package auth

func passwordHashCost() int {
	// same work factor the journal backend has always used
	return 10
}
