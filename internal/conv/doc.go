// Package conv provides checked integer conversions for binary formats.
package conv
