// Package wgc is the Windows.Graphics.Capture backend for package capture.
//
// It creates Direct3D 11 devices through d3d11.dll, activates the WinRT
// capture classes with go-ole, and calls every COM method through its
// vtable. The window and display targets defined here satisfy
// capture.Target. On other platforms every entry point returns
// capture.ErrNotSupported.
package wgc
