// Package preflight provides readiness checks for the filesystem roots and
// external tools sbsconv depends on.
//
// These checks run in two contexts:
//   - The live daemon calls RunAll once at startup and refuses to start when
//     the source root or converter is unusable.
//   - The CLI "sbsconv deps" command prints every result as a table.
package preflight
