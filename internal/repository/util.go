package repository

import "strconv"

// placeholder renders the nth positional parameter for dynamically
// assembled queries.
func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}
