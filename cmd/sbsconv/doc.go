// Command sbsconv scans shot directories, converts EXR frames to
// side-by-side stereo, and promotes finished shots to the comp directory.
//
// Every command reads ~/.config/sbsconv/config.toml unless --config points
// elsewhere; --source and --dest override the configured roots.
package main
