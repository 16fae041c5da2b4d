// Package validate provides ready-made settings.Validator constructors.
//
// Tag validators use go-playground/validator rule strings ("min=0,max=100",
// "oneof=light dark"). Range and coercion validators convert their input
// with spf13/cast first, so values decoded from JSON (float64) or the
// environment (string) are stored with the expected Go type.
package validate
