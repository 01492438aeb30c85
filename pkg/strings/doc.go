// Package strings holds string helpers shared by the output paths.
package strings
