package pdfmerge

// conformanceChecker is the per-document checking flag of an output document.
type conformanceChecker interface {
	SetConformanceChecking(on bool)
	ConformanceChecking() bool
}

// suspendChecking turns conformance checking off and returns a func that
// restores the previous setting. Synthesized pages are copied with checking
// suspended; the finalizer turns it back on before the document closes.
//
//	restore := suspendChecking(doc)
//	defer restore()
func suspendChecking(c conformanceChecker) (restore func()) {
	prev := c.ConformanceChecking()
	c.SetConformanceChecking(false)
	return func() { c.SetConformanceChecking(prev) }
}

// enableChecking turns conformance checking on for the final validation
// performed when the document closes.
func enableChecking(c conformanceChecker) {
	c.SetConformanceChecking(true)
}
