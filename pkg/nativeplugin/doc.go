// Package nativeplugin hosts one native audio plugin binary per Wrapper: it
// resolves the plugin's entry point with dlopen/dlsym, drives its
// load/activate/process/deactivate lifecycle, embeds its editor window, and
// carries its state across save/load. Go's own plugin package only loads
// other Go binaries built with -buildmode=plugin, so a native ABI this
// broad needs cgo regardless of which side of it originates in C, C++, or
// Rust.
//
// Everything under this package runs inside the plugin subprocess;
// pkg/pluginhost is the supervisor that owns a set of Wrappers and serves
// the control-plane protocol in front of them.
package nativeplugin
