package ipcevent

// This package only ships a Linux implementation (eventfd). A named-event
// pair of this shape is historically a Windows-specific primitive
// (WaitForSingleObject); eventfd is its POSIX equivalent, so a further
// macOS/Windows backend would be separate future work.
