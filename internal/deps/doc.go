// Package deps locates the external binaries sbsconv shells out to and
// reports their availability.
package deps
