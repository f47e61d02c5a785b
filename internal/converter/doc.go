// Package converter wraps the external oiiotool invocation that turns one
// source EXR frame into its SBS counterpart.
//
// Output is always written to a hidden temp file beside the final name and
// renamed into place only when the tool exits zero, so a failed or
// interrupted conversion never leaves a partial frame under the final name.
package converter
