// Package decode turns image files into display proxies. The low tier
// is a fast, small decode (libvips with decode-time shrinking when
// available); the high tier is a full decode constrained by memory
// limits so very large files cannot OOM the process.
package decode
