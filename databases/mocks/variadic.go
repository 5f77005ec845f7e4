package mocks

// variadic flattens fixed arguments and trailing options into one Called list,
// so expectations registered without options still match.
func variadic(head []interface{}, tail ...interface{}) []interface{} {
	return append(head, tail...)
}
