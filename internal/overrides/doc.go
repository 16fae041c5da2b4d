// Package overrides builds the overrides mapping for settings.New from the
// environment and from "key=value" pairs given on the command line.
//
// Raw strings are converted to the type of the key's default (int, float,
// bool, duration, string slice) so validators see familiar types.
package overrides
