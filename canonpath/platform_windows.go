//go:build windows

package canonpath

// onWindows is true on Windows builds: both '/' and '\' are path
// separators, and a leading "//" is preserved (it names a UNC share root)
// rather than collapsed.
const onWindows = true

func isSeparator(b byte) bool { return b == '/' || b == '\\' }
