// Redirect calls between Go functions at runtime
//
// A redirect swaps one function for another with the same signature. A
// scoped redirect only changes the calls made from one caller, a global
// redirect replaces the original function's body with a jump to the
// replacement so every caller is affected.
//
// The Registry and Rewriter work on an abstract instruction stream and don't
// care where it comes from. Any instrumentation layer that can hand over a
// method body and install a new one can implement Host. NativeHost is the
// Host for the running Go program: it decodes and patches machine code in
// place.
//
// Limitations of NativeHost:
//   - Only supports amd64 and arm64 (arm64 requires cgo)
//   - Relies on internal Go APIs that can break at any time
//   - Inlined calls can't be redirected
//   - Calls through function values and interfaces can't be redirected by a
//     scoped redirect
//   - Generic instantiations with the same GC shape share code, so a global
//     redirect of one redirects them all
package redirect
