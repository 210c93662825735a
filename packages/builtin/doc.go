// Package builtin provides the functions available inside ${...} placeholders.
//
// Available functions:
//   - uuid(): random UUID v4
//   - now(): current UTC time in RFC 3339
//   - timestamp(), timestampMs(): Unix time in seconds or milliseconds
//   - date(layout): current UTC date, Go layout, default 2006-01-02
//   - random(min, max): random integer in range
//   - randomString(length): random alphanumeric string
//   - randomEmail(): random address
//   - base64(value), sha256(value), urlEncode(value)
//
// A case writes ${uuid()} or ${randomString(12)} wherever a variable is allowed.
package builtin
