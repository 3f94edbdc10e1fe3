// Package dirty turns editor activity into MarkDirty signals.
//
// The terminal offers no structural mutation events, so several signals are
// combined:
//
//   - InputDetector: any key except tab, shift+tab, esc and the arrows (with
//     or without shift), and any mouse release. ctrl+s is excluded because it
//     is the save command.
//   - RenderDetector: a hash of each rendered grid frame; a changed frame is
//     a possible mutation.
//   - ChangeDetector: the document's own Subscribe hook, the exact signal.
//
// Every detector over-reports. The coordinator serializes and compares before
// acting, so a spurious signal costs one throttled serialization.
package dirty
